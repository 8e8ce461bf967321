// Package relational implements the storage provider on a SQL database through
// sqlx. The same queries run on postgres and sqlite; placeholders are rebound
// for the active driver.
package relational

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/shared/database"
)

type Provider struct {
	client   *database.Client
	db       *sqlx.DB
	driver   string
	logger   *slog.Logger
	notifier storage.StatusFailureNotifier
	now      func() time.Time
}

var _ storage.Provider = (*Provider)(nil)

func New(client *database.Client, logger *slog.Logger, notifier storage.StatusFailureNotifier) *Provider {
	return &Provider{
		client:   client,
		db:       client.GetDB(),
		driver:   client.Driver(),
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

func (p *Provider) Name() storage.Name { return storage.NameRelational }

// Ping runs a query round trip, not just a pool ping
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.client.HealthCheck(ctx); err != nil {
		p.logger.Warn("Relational database unreachable",
			slog.String("driver", p.driver),
			slog.String("pool", p.client.Stats()),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

func (p *Provider) FetchJobs(ctx context.Context, filter domain.JobFilter) (*domain.JobList, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	// Filters
	if filter.Search != "" {
		pattern := "%" + storage.EscapeLike(strings.ToLower(filter.Search)) + "%"
		where += ` AND (LOWER(company) LIKE ? ESCAPE '\' OR LOWER(position) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if filter.Favorites {
		where += " AND is_favorite = ?"
		args = append(args, true)
	}

	var total int
	if err := p.db.GetContext(ctx, &total, p.db.Rebind("SELECT COUNT(*) FROM jobs"+where), args...); err != nil {
		return nil, p.wrap("count jobs", err)
	}

	// id breaks ties so consecutive pages never overlap
	query := "SELECT " + jobColumns + " FROM jobs" + where +
		" ORDER BY application_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset())

	var rows []jobRow
	if err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...); err != nil {
		return nil, p.wrap("list jobs", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toDomain())
	}
	return &domain.JobList{Jobs: jobs, Pagination: domain.NewPagination(filter, total)}, nil
}

func (p *Provider) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	return p.getJob(ctx, p.db, id)
}

func (p *Provider) getJob(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Job, error) {
	var row jobRow
	err := sqlx.GetContext(ctx, q, &row, p.db.Rebind("SELECT "+jobColumns+" FROM jobs WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, p.wrap("get job", err)
	}
	job := row.toDomain()
	return &job, nil
}

// CreateJob inserts the job and its applied event in one transaction
func (p *Provider) CreateJob(ctx context.Context, in domain.NewJob) (*domain.Job, error) {
	if in.Status == "" {
		in.Status = domain.StatusApplied
	}

	var job *domain.Job
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		now := p.now().UTC()
		query := `
			INSERT INTO jobs (
				company, position, job_url, application_date, status, location, notes,
				latitude, longitude, formatted_address, place_id, is_favorite, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`
		var id int64
		err := tx.QueryRowxContext(ctx, p.db.Rebind(query),
			in.Company,
			in.Position,
			in.JobURL,
			in.ApplicationDate,
			string(in.Status),
			in.Location,
			in.Notes,
			in.Latitude,
			in.Longitude,
			in.FormattedAddress,
			in.PlaceID,
			in.IsFavorite,
			now,
			now,
		).Scan(&id)
		if err != nil {
			return p.wrap("create job", err)
		}

		created, err := p.getJob(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := p.insertEvent(ctx, tx, domain.AppliedEvent(created), now); err != nil {
			return err
		}
		job = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (p *Provider) UpdateJob(ctx context.Context, id int64, patch domain.JobPatch) error {
	query := `
		UPDATE jobs SET
			company = COALESCE(?, company),
			position = COALESCE(?, position),
			job_url = COALESCE(?, job_url),
			application_date = COALESCE(?, application_date),
			status = COALESCE(?, status),
			location = COALESCE(?, location),
			notes = COALESCE(?, notes),
			latitude = COALESCE(?, latitude),
			longitude = COALESCE(?, longitude),
			formatted_address = COALESCE(?, formatted_address),
			place_id = COALESCE(?, place_id),
			is_favorite = COALESCE(?, is_favorite),
			updated_at = ?
		WHERE id = ?
	`
	res, err := p.db.ExecContext(ctx, p.db.Rebind(query),
		patch.Company,
		patch.Position,
		patch.JobURL,
		patch.ApplicationDate,
		patch.Status,
		patch.Location,
		patch.Notes,
		patch.Latitude,
		patch.Longitude,
		patch.FormattedAddress,
		patch.PlaceID,
		patch.IsFavorite,
		p.now().UTC(),
		id,
	)
	if err != nil {
		return p.wrap("update job", err)
	}
	return expectAffected(res, domain.ErrJobNotFound)
}

// DeleteJob removes the events first and then the job, in one transaction
func (p *Provider) DeleteJob(ctx context.Context, id int64) error {
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, p.db.Rebind("DELETE FROM job_events WHERE job_id = ?"), id); err != nil {
			return p.wrap("delete job events", err)
		}
		res, err := tx.ExecContext(ctx, p.db.Rebind("DELETE FROM jobs WHERE id = ?"), id)
		if err != nil {
			return p.wrap("delete job", err)
		}
		return expectAffected(res, domain.ErrJobNotFound)
	})
}

// ToggleFavorite writes !current in a single statement, so two clients holding
// the same view converge on the same value
func (p *Provider) ToggleFavorite(ctx context.Context, id int64, current bool) error {
	res, err := p.db.ExecContext(ctx,
		p.db.Rebind("UPDATE jobs SET is_favorite = ?, updated_at = ? WHERE id = ?"),
		!current, p.now().UTC(), id,
	)
	if err != nil {
		return p.wrap("toggle favorite", err)
	}
	return expectAffected(res, domain.ErrJobNotFound)
}

func (p *Provider) FetchJobEvents(ctx context.Context, jobID *int64) ([]domain.JobEvent, error) {
	query := "SELECT " + eventColumns + " FROM job_events"
	args := []interface{}{}
	if jobID != nil {
		query += " WHERE job_id = ?"
		args = append(args, *jobID)
	}
	query += " ORDER BY event_date DESC, id DESC"

	var rows []eventRow
	if err := p.db.SelectContext(ctx, &rows, p.db.Rebind(query), args...); err != nil {
		return nil, p.wrap("list job events", err)
	}
	events := make([]domain.JobEvent, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].toDomain())
	}
	return events, nil
}

// CreateJobEvent stores the event and writes the derived status in the same
// transaction. The status write runs inside a savepoint: when it fails the
// event is still committed and the failure is reported for reconciliation.
func (p *Provider) CreateJobEvent(ctx context.Context, in domain.NewJobEvent) (*domain.JobEvent, error) {
	var (
		evt       *domain.JobEvent
		statusErr error
	)
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, p.db.Rebind("SELECT COUNT(*) FROM jobs WHERE id = ?"), in.JobID)
		if err != nil {
			return p.wrap("check job", err)
		}
		if exists == 0 {
			return domain.ErrJobNotFound
		}

		created, err := p.insertEvent(ctx, tx, in, p.now().UTC())
		if err != nil {
			return err
		}
		evt = created
		statusErr = p.applyDerivedStatus(ctx, tx, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusErr != nil {
		storage.ReportStatusFailure(ctx, p.logger, p.notifier, storage.StatusFailure{
			Provider: storage.NameRelational,
			JobID:    evt.JobID,
			EventID:  evt.ID,
			Err:      statusErr,
		})
	}
	return evt, nil
}

func (p *Provider) applyDerivedStatus(ctx context.Context, tx *sqlx.Tx, evt *domain.JobEvent) error {
	var latest int64
	err := tx.GetContext(ctx, &latest, p.db.Rebind(
		"SELECT COALESCE(MAX(id), 0) FROM job_events WHERE job_id = ? AND event_type = ?"),
		evt.JobID, string(domain.EventInterviewResult),
	)
	if err != nil {
		return fmt.Errorf("failed to find latest interview result: %w", err)
	}

	status, ok := domain.StatusChange(*evt, latest)
	if !ok {
		return nil
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT derive_status"); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		p.db.Rebind("UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?"),
		string(status), p.now().UTC(), evt.JobID,
	)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT derive_status"); rbErr != nil {
			return fmt.Errorf("failed to write status: %w (rollback to savepoint: %v)", err, rbErr)
		}
		return fmt.Errorf("failed to write status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT derive_status"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (p *Provider) insertEvent(ctx context.Context, tx *sqlx.Tx, in domain.NewJobEvent, now time.Time) (*domain.JobEvent, error) {
	query := `
		INSERT INTO job_events (
			job_id, event_type, event_date, event_date_only, title, description, interview_round,
			interview_type, interview_link, interview_result, notes, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err := tx.QueryRowxContext(ctx, p.db.Rebind(query),
		in.JobID,
		string(in.EventType),
		in.EventDate,
		in.EventDate.DateOnly(),
		in.Title,
		in.Description,
		in.InterviewRound,
		string(in.InterviewType),
		in.InterviewLink,
		string(in.InterviewResult),
		in.Notes,
		jsonArg(in.Metadata),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return nil, p.wrap("create job event", err)
	}

	var row eventRow
	if err := tx.GetContext(ctx, &row, p.db.Rebind("SELECT "+eventColumns+" FROM job_events WHERE id = ?"), id); err != nil {
		return nil, p.wrap("read job event", err)
	}
	evt := row.toDomain()
	return &evt, nil
}

func (p *Provider) UpdateJobEvent(ctx context.Context, id int64, patch domain.JobEventPatch) error {
	query := `
		UPDATE job_events SET
			event_type = COALESCE(?, event_type),
			event_date = COALESCE(?, event_date),
			event_date_only = COALESCE(?, event_date_only),
			title = COALESCE(?, title),
			description = COALESCE(?, description),
			interview_round = COALESCE(?, interview_round),
			interview_type = COALESCE(?, interview_type),
			interview_link = COALESCE(?, interview_link),
			interview_result = COALESCE(?, interview_result),
			notes = COALESCE(?, notes),
			metadata = COALESCE(?, metadata),
			updated_at = ?
		WHERE id = ?
	`
	res, err := p.db.ExecContext(ctx, p.db.Rebind(query),
		patch.EventType,
		patch.EventDate,
		dateOnlyArg(patch.EventDate),
		patch.Title,
		patch.Description,
		patch.InterviewRound,
		patch.InterviewType,
		patch.InterviewLink,
		patch.InterviewResult,
		patch.Notes,
		jsonArg(patch.Metadata),
		p.now().UTC(),
		id,
	)
	if err != nil {
		return p.wrap("update job event", err)
	}
	return expectAffected(res, domain.ErrEventNotFound)
}

func (p *Provider) DeleteJobEvent(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, p.db.Rebind("DELETE FROM job_events WHERE id = ?"), id)
	if err != nil {
		return p.wrap("delete job event", err)
	}
	return expectAffected(res, domain.ErrEventNotFound)
}

func (p *Provider) BulkDeleteJobEvents(ctx context.Context, jobID int64, types []domain.EventType) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	query, args, err := sqlx.In("DELETE FROM job_events WHERE job_id = ? AND event_type IN (?)", jobID, names)
	if err != nil {
		return 0, fmt.Errorf("failed to build bulk delete: %w", err)
	}
	res, err := p.db.ExecContext(ctx, p.db.Rebind(query), args...)
	if err != nil {
		return 0, p.wrap("bulk delete job events", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, p.wrap("bulk delete job events", err)
	}
	return n, nil
}

func (p *Provider) FetchStats(ctx context.Context) (*domain.Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'interview' THEN 1 ELSE 0 END), 0) AS interviews,
			COALESCE(SUM(CASE WHEN status = 'offer' THEN 1 ELSE 0 END), 0) AS offers,
			COALESCE(SUM(CASE WHEN is_favorite THEN 1 ELSE 0 END), 0) AS favorites,
			COALESCE(SUM(CASE WHEN status = 'applied' THEN 1 ELSE 0 END), 0) AS applied,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0) AS accepted
		FROM jobs
	`
	var row statsRow
	if err := p.db.GetContext(ctx, &row, query); err != nil {
		return nil, p.wrap("fetch stats", err)
	}
	return row.toDomain(), nil
}

func (p *Provider) RecomputeStatus(ctx context.Context, jobID int64) (domain.Status, error) {
	var status domain.Status
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		job, err := p.getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}

		var rows []eventRow
		err = tx.SelectContext(ctx, &rows, p.db.Rebind("SELECT "+eventColumns+" FROM job_events WHERE job_id = ?"), jobID)
		if err != nil {
			return p.wrap("load job events", err)
		}
		events := make([]domain.JobEvent, 0, len(rows))
		for i := range rows {
			events = append(events, rows[i].toDomain())
		}

		status = domain.RecomputeStatus(events)
		if status == job.Status {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			p.db.Rebind("UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?"),
			string(status), p.now().UTC(), jobID,
		)
		if err != nil {
			return p.wrap("write reconciled status", err)
		}
		p.logger.Info("Reconciled job status",
			slog.Int64("job_id", jobID),
			slog.String("from", string(job.Status)),
			slog.String("to", string(status)),
		)
		return nil
	})
	return status, err
}

func (p *Provider) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.client.BeginTx(ctx)
	if err != nil {
		return p.wrap("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	committed = true
	if err := tx.Commit(); err != nil {
		return p.wrap("commit transaction", err)
	}
	return nil
}

// wrap marks connectivity failures as ErrProviderUnavailable
func (p *Provider) wrap(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("failed to %s: %w: %v", op, domain.ErrProviderUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
