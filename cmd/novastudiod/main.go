package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"novastudio/internal/artifacts"
	"novastudio/internal/catalog"
	"novastudio/internal/config"
	"novastudio/internal/daemon"
	"novastudio/internal/jobs"
	"novastudio/internal/logging"
	"novastudio/internal/notifications"
	"novastudio/internal/preflight"
	"novastudio/internal/scheduler"
	"novastudio/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if failures := preflight.Failures(preflight.RunAll(ctx, cfg)); len(failures) > 0 {
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "preflight %s: %s\n", failure.Name, failure.Detail)
		}
		os.Exit(1)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}
	cat, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		store.Close()
		os.Exit(1)
	}

	artifactStore, err := artifacts.NewLocalStore(cfg.Paths.ArtifactDir)
	if err != nil {
		logger.Error("open artifact store", logging.Error(err))
		os.Exit(1)
	}
	registry := worker.DefaultRegistry(artifactStore, logger, worker.DefaultStepDelay)
	notifier := notifications.NewService(cfg)
	sched := scheduler.New(cfg, store, cat, registry, notifier, logger)

	d, err := daemon.New(cfg, store, cat, sched, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("novastudiod shutting down")
}
