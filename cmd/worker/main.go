package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"signflow-backend/internal/bootstrap"
	"signflow-backend/internal/shared/config"
	"signflow-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	if cfg.SQSQueueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	consumer := &workerproc.Consumer{
		API:               app.SQS.API(),
		QueueURL:          app.SQS.QueueURL(),
		Retriever:         app.Processor,
		Concurrency:       envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency),
		VisibilitySeconds: int32(envInt("SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)),
		ShutdownTimeout:   time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
	}
	consumer.Run(ctx)
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
