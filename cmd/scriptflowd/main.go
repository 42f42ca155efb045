package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scriptflow/internal/config"
	"scriptflow/internal/daemon"
	"scriptflow/internal/logging"
	"scriptflow/internal/session"
)

func main() {
	// .env is a development convenience; production injects env vars directly.
	if os.Getenv("SCRIPTFLOW_ENV") != "production" {
		_ = godotenv.Load()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := session.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		os.Exit(1)
	}

	sched, blobs, notifier, err := buildScheduler(cfg, store, logger)
	if err != nil {
		logger.Error("wire pipeline", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer func() { _ = notifier.Close() }()

	d, err := daemon.New(cfg, store, sched, blobs, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer func() { _ = d.Close() }()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("scriptflowd shutting down")
}
