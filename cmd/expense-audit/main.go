package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/worker"
)

const reportInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "expense-audit:", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig("expense-audit", os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}
	logger := cli.SetupLogger(cfg, os.Stdout).WithComponent(applog.ComponentWorker)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	audit, err := worker.NewAuditWorker(cfg.AuditLogPath, logger)
	if err != nil {
		return err
	}
	defer audit.Close()

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	logger.Info("Starting expense-audit",
		"queue", cfg.AMQPQueue,
		"audit_log", cfg.AuditLogPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeExpenseEvents(gctx, audit.HandleExpenseEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		audit.ReportPeriodically(gctx, reportInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker stopped", "counts", audit.Counts())
	return nil
}
