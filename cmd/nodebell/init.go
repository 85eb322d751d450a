package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"nodebell/pkg/alert"
	"nodebell/pkg/config"
)

// initConfig загружает конфиг из файла YAML. Если файл не найден, возвращается config.Default().
// Keys missing from the file keep their default values.
func initConfig(path string) (config.Config, error) {
	cfg := config.Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// initLogger настраивает глобальный slog.Logger (JSON или текстовый).
func initLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Logger.Level))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", level.String(), "json", cfg.Logger.JSON)
}

// initPlayer picks the audio program. Without one every alert fails and is
// logged; the service keeps accepting events.
func initPlayer(cfg *config.AlertConfig) alert.Player {
	prog := cfg.Player
	if prog == "" {
		detected, err := alert.DetectPlayer(alert.DefaultPlayers, nil)
		if err != nil {
			slog.Warn("No audio player found, alerts will only be logged", "error", err)
			return alert.PlayerFunc(func(context.Context, string) error { return err })
		}
		prog = detected
	}
	slog.Info("audio player selected", "player", prog, "sound", cfg.Sound)
	return alert.NewCommandPlayer(prog, cfg.PlayerArgs)
}
