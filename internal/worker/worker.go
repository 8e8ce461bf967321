// Package worker consumes status.reconcile messages and rebuilds the derived
// status of the named job from its events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/internal/worker/domain"
)

// Consumer opens a delivery stream; *rabbitmq.Client satisfies it
type Consumer interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Resolver builds the provider a message names; *storage.Registry satisfies it
type Resolver interface {
	Resolve(ctx context.Context, name storage.Name, ownerID string) (storage.Provider, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Consumer      Consumer
	Providers     Resolver
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker represents the background reconciliation worker
type Worker struct {
	logger        *slog.Logger
	consumer      Consumer
	providers     Resolver
	workerID      string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration

	jobsChan chan *domain.Message
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "reconciler"
	}

	return &Worker{
		logger:        cfg.Logger,
		consumer:      cfg.Consumer,
		providers:     cfg.Providers,
		workerID:      workerID,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		jobTimeout:    timeout,
		jobsChan:      make(chan *domain.Message, concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes messages until ctx is canceled, Stop is called or the
// delivery stream closes. It returns after every in-flight message is settled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	// the dispatcher is the only sender
	close(w.jobsChan)
	w.wg.Wait()

	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
	return nil
}

// Stop asks Start to return; safe to call more than once
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
}
