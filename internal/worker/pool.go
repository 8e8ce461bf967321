package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-tracker/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop settles messages until the dispatcher closes jobsChan
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for msg := range w.jobsChan {
		err := w.processMessage(ctx, msg)
		w.settle(workerName, msg, err)
	}

	w.logger.Debug("Worker goroutine stopping - jobsChan closed", slog.String("worker_name", workerName))
}

// settle ACKs a handled message and NACKs a failed one
func (w *Worker) settle(workerName string, msg *domain.Message, err error) {
	attrs := []any{
		slog.String("worker_name", workerName),
		slog.Int64("job_id", msg.Request.JobID),
		slog.String("provider", string(msg.Request.Provider)),
	}

	if err == nil {
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message", append(attrs, slog.Any("error", ackErr))...)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Reconciliation failed", append(attrs, slog.Bool("requeue", requeue), slog.Any("error", err))...)
	if nackErr := msg.Delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message", append(attrs, slog.Any("error", nackErr))...)
	}
}

// shouldRequeue requeues transient failures only
func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrInvalidMessage) || errors.Is(err, domain.ErrUnroutable) {
		return false
	}
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
