package command

import (
	"context"
	"os/exec"
)

type Command interface {
	Start() error
	Wait() error
}

type Commander interface {
	NewCommand(ctx context.Context, ci CommandInfo) Command
}

// Necessary information to create a new command
type CommandInfo struct {
	Prog string
	Args []string
	Env  []string
}

// ExecCommander creates commands with the os/exec package.
type ExecCommander struct{}

// NewCommand creates a command that is killed when ctx is done.
func (ExecCommander) NewCommand(ctx context.Context, ci CommandInfo) Command {
	cmd := exec.CommandContext(ctx, ci.Prog, ci.Args...)
	if len(ci.Env) > 0 {
		cmd.Env = ci.Env
	}
	return cmd
}

// LookPath reports the resolved path of prog, or "" if it is not on PATH.
func LookPath(prog string) string {
	p, err := exec.LookPath(prog)
	if err != nil {
		return ""
	}
	return p
}
