// Command platterd runs the platter daemon: drive watchers, the rip,
// encode, identify, and move lanes, and the HTTP control surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"platter/internal/config"
	"platter/internal/daemon"
	"platter/internal/logging"
	"platter/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatalf("platterd: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, configPath, found, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.LogDir())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !found {
		logger.Info("no config file found; running on defaults",
			logging.String("path", configPath))
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, buildSupervisor(cfg, store, logger))
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("platterd shutting down")
	return nil
}
