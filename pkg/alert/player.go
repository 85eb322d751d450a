package alert

import (
	"context"
	"errors"
	"fmt"

	"nodebell/pkg/command"
)

var ErrNoPlayer = errors.New("nodebell: no audio player found")

// DefaultPlayers is the search order used when no player is configured.
var DefaultPlayers = []string{"mplayer", "afplay", "mpg123", "mpg321", "play", "omxplayer", "aplay", "cmdmp3"}

// Player plays a sound file and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays sounds by running an external program with the
// file path as its last argument.
type CommandPlayer struct {
	Prog      string
	Args      []string
	Commander command.Commander
}

func NewCommandPlayer(prog string, args []string) *CommandPlayer {
	return &CommandPlayer{
		Prog:      prog,
		Args:      args,
		Commander: command.ExecCommander{},
	}
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := make([]string, 0, len(p.Args)+1)
	args = append(args, p.Args...)
	args = append(args, path)

	cmd := p.Commander.NewCommand(ctx, command.CommandInfo{Prog: p.Prog, Args: args})
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Prog, err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s: %w", p.Prog, path, err)
	}
	return nil
}

// DetectPlayer returns the first candidate that lookPath resolves.
func DetectPlayer(candidates []string, lookPath func(string) string) (string, error) {
	if lookPath == nil {
		lookPath = command.LookPath
	}
	for _, prog := range candidates {
		if p := lookPath(prog); p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried %v)", ErrNoPlayer, candidates)
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(ctx context.Context, path string) error

func (f PlayerFunc) Play(ctx context.Context, path string) error {
	return f(ctx, path)
}
