package command

import (
	"context"
	"testing"
	"time"
)

func TestExecCommanderRunsProgram(t *testing.T) {
	prog := LookPath("true")
	if prog == "" {
		t.Skip("true is not on PATH")
	}

	cmd := ExecCommander{}.NewCommand(context.Background(), CommandInfo{Prog: prog})
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestExecCommanderHonorsContext(t *testing.T) {
	prog := LookPath("sleep")
	if prog == "" {
		t.Skip("sleep is not on PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cmd := ExecCommander{}.NewCommand(ctx, CommandInfo{Prog: prog, Args: []string{"5"}})
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	start := time.Now()
	if err := cmd.Wait(); err == nil {
		t.Fatal("Wait returned nil for a killed process")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("process was not killed when the context expired")
	}
}

func TestLookPathMissing(t *testing.T) {
	if got := LookPath("nodebell-no-such-program"); got != "" {
		t.Fatalf("LookPath = %q, want empty", got)
	}
}
