package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	store, cleanup := cli.InitStore(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	recompute := worker.NewRecomputeWorker(store, worker.LogNotifier{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	go func() {
		err := amqpClient.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
			return recompute.HandleChangeMessage(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Change consumption stopped", "error", err)
		}
	}()

	// Backup pass for owners whose change messages were lost.
	go recompute.RunPeriodic(ctx, cfg.RecomputeInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
