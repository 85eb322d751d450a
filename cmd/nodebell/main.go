package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	server "nodebell/internal/http"
	"nodebell/internal/telemetry"
	"nodebell/pkg/alert"
	"nodebell/pkg/cluster"
	"nodebell/pkg/registry"
)

var (
	configFlag string
	portFlag   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "nodebell",
		Short:        "Track node liveness and ring a bell on node events",
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVar(&configFlag, "config", "config.yaml", "Path to the YAML config file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "HTTP port (overrides http-server.port)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := initConfig(configFlag)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configFlag, err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = portFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	initLogger(&cfg)

	var opts []registry.Option
	if cfg.ZooKeeper.Enabled() {
		mirror, err := cluster.NewZKMirror(cfg.ZooKeeper.Servers, cfg.ZooKeeper.Root, cfg.ZooKeeper.SessionTimeout)
		if err != nil {
			return err
		}
		defer mirror.Close()

		startCtx, startCancel := context.WithTimeout(ctx, 2*cfg.ZooKeeper.SessionTimeout)
		err = mirror.Start(startCtx)
		startCancel()
		if err != nil {
			return fmt.Errorf("start zookeeper mirror: %w", err)
		}
		opts = append(opts, registry.WithMirror(mirror), registry.WithMirrorTimeout(cfg.ZooKeeper.SessionTimeout))
	}

	nodes := registry.New(opts...)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer closeCancel()
		if err := nodes.Close(closeCtx); err != nil {
			slog.Warn("Pending mirror writes not flushed", "error", err)
		}
	}()
	telemetry.SetNodeCounter(nodes.Count)

	notifier := alert.NewNotifier(initPlayer(&cfg.Alert), cfg.Alert.Sound, cfg.Alert.Timeout)

	srv := server.NewServer(nodes, notifier, &cfg)
	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down")

	if err := srv.Stop(); err != nil {
		slog.Error("Error stopping server", "error", err)
		return err
	}
	slog.Info("nodebell stopped")
	return nil
}
