package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nodebell/pkg/alert"
	"nodebell/pkg/config"
)

func TestInitConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := initConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if cfg.Server.Port != config.Default().Server.Port {
		t.Fatalf("port = %d, want default", cfg.Server.Port)
	}
}

func TestInitConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
logger:
  level: debug
  json: true
http-server:
  port: 9090
registry:
  strict_lookup: true
alert:
  player: aplay
  player_args: ["-q"]
  timeout: 10s
zookeeper:
  servers: ["zk1:2181", "zk2:2181"]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := initConfig(path)
	if err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || !cfg.Logger.JSON || !cfg.Registry.StrictLookup {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Alert.Player != "aplay" || len(cfg.Alert.PlayerArgs) != 1 || cfg.Alert.Timeout != 10*time.Second {
		t.Fatalf("unexpected alert config %+v", cfg.Alert)
	}
	if len(cfg.ZooKeeper.Servers) != 2 || cfg.ZooKeeper.Root != "/nodebell" {
		t.Fatalf("unexpected zookeeper config %+v", cfg.ZooKeeper)
	}
	// untouched keys keep defaults
	if cfg.Routes.Nodes != "/nodes" || cfg.Alert.Sound != "sounds/bell.wav" || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Fatalf("defaults lost: routes=%+v sound=%q", cfg.Routes, cfg.Alert.Sound)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestInitConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http-server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := initConfig(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestInitPlayerWithExplicitProgram(t *testing.T) {
	cfg := config.Default().Alert
	cfg.Player = "aplay"

	p, ok := initPlayer(&cfg).(*alert.CommandPlayer)
	if !ok {
		t.Fatalf("expected *alert.CommandPlayer")
	}
	if p.Prog != "aplay" {
		t.Fatalf("prog = %q, want aplay", p.Prog)
	}
}

func TestInitPlayerWithoutProgram(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default().Alert

	err := initPlayer(&cfg).Play(context.Background(), cfg.Sound)
	if !errors.Is(err, alert.ErrNoPlayer) {
		t.Fatalf("Play = %v, want ErrNoPlayer", err)
	}
}
