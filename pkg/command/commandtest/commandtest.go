package commandtest

import (
	"context"
	"sync"

	"nodebell/pkg/command"
)

type CommanderTest struct {
	NewCommandHook func(c *CommandTest)

	mu       sync.Mutex
	commands []*CommandTest
}

func (c *CommanderTest) NewCommand(_ context.Context, ci command.CommandInfo) command.Command {
	cmd := &CommandTest{
		Info: ci,
	}
	if c.NewCommandHook != nil {
		c.NewCommandHook(cmd)
	}
	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	c.mu.Unlock()
	return cmd
}

// Commands returns every command created so far.
func (c *CommanderTest) Commands() []*CommandTest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*CommandTest(nil), c.commands...)
}

type CommandTest struct {
	sync.Mutex
	Info command.CommandInfo

	StartErr error
	WaitErr  error
	// WaitBlock, if set, is received from before Wait returns.
	WaitBlock chan struct{}

	Started bool
	Waited  bool
}

func (c *CommandTest) Start() error {
	c.Lock()
	defer c.Unlock()
	c.Started = true
	return c.StartErr
}

func (c *CommandTest) Wait() error {
	if c.WaitBlock != nil {
		<-c.WaitBlock
	}
	c.Lock()
	defer c.Unlock()
	c.Waited = true
	return c.WaitErr
}
