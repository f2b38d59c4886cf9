// Package main is the entry point for the stock ledger background worker.
// It relays outbox events and purges expired idempotency keys.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres storage driver", "driver", cfg.Storage.Driver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockledger worker")

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	worker, err := NewWorker(application.Pool, application.TxManager, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize worker", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker drives the outbox relay and the idempotency key cleanup.
type Worker struct {
	pool         *postgres.Pool
	relay        *postgres.OutboxRelay
	keys         *postgres.IdempotencyStore
	pollInterval time.Duration
	batchSize    int
	log          *logger.Logger
}

// NewWorker creates a worker on top of txManager.
func NewWorker(pool *postgres.Pool, txManager *postgres.TxManager, cfg config.Config, log *logger.Logger) (*Worker, error) {
	codec, err := postgres.NewPayloadCodec(postgres.DefaultCompressThreshold)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		pool:         pool,
		keys:         postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL),
		pollInterval: cfg.Worker.PollInterval,
		batchSize:    cfg.Worker.BatchSize,
		log:          log.WithComponent("worker"),
	}
	w.relay = postgres.NewOutboxRelay(txManager, codec, cfg.Worker.BatchSize, postgres.OutboxHandlerFunc(w.deliver))
	return w, nil
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanupIdempotency(ctx)
			w.pool.LogStats(ctx)
		}
	}
}

// drainOutbox processes full batches back to back.
func (w *Worker) drainOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n < w.batchSize {
			return
		}
	}
}

// deliver hands an event to downstream consumers. There are none yet, so
// the event is logged.
func (w *Worker) deliver(ctx context.Context, msg *postgres.OutboxMessage) error {
	w.log.Infow("event",
		"event_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	n, err := w.keys.CleanupExpired(ctx)
	if err != nil {
		w.log.Warnw("idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
