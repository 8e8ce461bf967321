package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apidomain "github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/worker/domain"
)

// processMessage recomputes the status of the requested job.
// A job deleted since the request was published needs no work.
func (w *Worker) processMessage(ctx context.Context, msg *domain.Message) error {
	req := msg.Request
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	provider, err := w.providers.Resolve(ctx, req.Provider, req.OwnerID)
	if err != nil {
		if errors.Is(err, apidomain.ErrNotConfigured) || errors.Is(err, apidomain.ErrAuthRequired) {
			return fmt.Errorf("%w: %v", domain.ErrUnroutable, err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to open provider: %w", err))
	}

	status, err := provider.RecomputeStatus(ctx, req.JobID)
	switch {
	case errors.Is(err, apidomain.ErrJobNotFound):
		w.logger.Info("Job no longer exists, nothing to reconcile",
			slog.Int64("job_id", req.JobID),
			slog.String("provider", string(req.Provider)),
		)
		return nil
	case errors.Is(err, apidomain.ErrProviderUnavailable), errors.Is(err, context.DeadlineExceeded):
		return domain.NewRetryableError(fmt.Errorf("failed to recompute status: %w", err))
	case err != nil:
		return fmt.Errorf("failed to recompute status: %w", err)
	}

	w.logger.Info("Job status reconciled",
		slog.Int64("job_id", req.JobID),
		slog.String("provider", string(req.Provider)),
		slog.String("status", string(status)),
		slog.String("reason", req.Reason),
	)
	return nil
}
