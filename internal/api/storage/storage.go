package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

// Name identifies a storage backend
type Name string

const (
	NameMock       Name = "mock"
	NameRelational Name = "relational"
	NameHosted     Name = "hosted"
)

// ParseName converts a string into a provider Name
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case NameMock, NameRelational, NameHosted:
		return n, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, s)
}

// Provider is the storage contract every backend implements with identical
// observable semantics. Updates and deletes of absent rows return
// domain.ErrJobNotFound or domain.ErrEventNotFound.
type Provider interface {
	Name() Name

	// Ping is a lightweight reachability probe
	Ping(ctx context.Context) error

	FetchJobs(ctx context.Context, filter domain.JobFilter) (*domain.JobList, error)
	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	// CreateJob stores the job and records its applied event
	CreateJob(ctx context.Context, in domain.NewJob) (*domain.Job, error)
	UpdateJob(ctx context.Context, id int64, patch domain.JobPatch) error
	// DeleteJob removes the job and all of its events
	DeleteJob(ctx context.Context, id int64) error
	// ToggleFavorite sets the favorite flag to !current
	ToggleFavorite(ctx context.Context, id int64, current bool) error

	// FetchJobEvents lists events of one job, or all jobs when jobID is nil,
	// newest event date first
	FetchJobEvents(ctx context.Context, jobID *int64) ([]domain.JobEvent, error)
	// CreateJobEvent stores the event and applies the derived status to its job
	CreateJobEvent(ctx context.Context, in domain.NewJobEvent) (*domain.JobEvent, error)
	UpdateJobEvent(ctx context.Context, id int64, patch domain.JobEventPatch) error
	DeleteJobEvent(ctx context.Context, id int64) error
	// BulkDeleteJobEvents removes the job's events of the given types and returns the count
	BulkDeleteJobEvents(ctx context.Context, jobID int64, types []domain.EventType) (int64, error)

	FetchStats(ctx context.Context) (*domain.Stats, error)

	// RecomputeStatus rebuilds the job status from its events and stores it
	RecomputeStatus(ctx context.Context, jobID int64) (domain.Status, error)
}

// StatusFailure describes a derived-status write that did not complete
type StatusFailure struct {
	Provider Name
	OwnerID  string
	JobID    int64
	EventID  int64
	Err      error
}

// StatusFailureNotifier is told about derived-status writes that failed after
// their event was stored, so the status can be reconciled later
type StatusFailureNotifier interface {
	StatusWriteFailed(ctx context.Context, failure StatusFailure)
}

// ReportStatusFailure logs a failed derived-status write and forwards it to the notifier.
// The event itself stays stored; the failure is never returned to the caller.
func ReportStatusFailure(ctx context.Context, logger *slog.Logger, notifier StatusFailureNotifier, failure StatusFailure) {
	logger.Warn("Failed to apply derived job status",
		slog.String("provider", string(failure.Provider)),
		slog.Int64("job_id", failure.JobID),
		slog.Int64("event_id", failure.EventID),
		slog.Any("error", failure.Err),
	)
	if notifier != nil {
		notifier.StatusWriteFailed(ctx, failure)
	}
}

// EscapeLike escapes LIKE wildcards so user input matches literally with ESCAPE '\'
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
