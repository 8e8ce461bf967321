// Package hosted implements the storage provider on the hosted Postgres backend
// through gorm. Every row belongs to one user and every query is scoped to the
// signed-in owner; rows of other owners behave as missing.
package hosted

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// Open connects gorm to the hosted Postgres database
func Open(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hosted database: %w", err)
	}
	return db, nil
}

// Store holds the shared gorm pool; providers are per owner views of it
type Store struct {
	db       *gorm.DB
	logger   *slog.Logger
	notifier storage.StatusFailureNotifier
	now      func() time.Time
}

func NewStore(db *gorm.DB, logger *slog.Logger, notifier storage.StatusFailureNotifier) *Store {
	return &Store{
		db:       db,
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

// ForOwner returns the provider view of the rows owned by ownerID
func (s *Store) ForOwner(ownerID string) *Provider {
	return &Provider{store: s, ownerID: ownerID}
}

// Factory resolves the hosted provider for the signed-in owner
func (s *Store) Factory() storage.Factory {
	return func(_ context.Context, ownerID string) (storage.Provider, error) {
		if ownerID == "" {
			return nil, domain.ErrAuthRequired
		}
		return s.ForOwner(ownerID), nil
	}
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ownedBy(ownerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", ownerID)
	}
}

type Provider struct {
	store   *Store
	ownerID string
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) Name() storage.Name { return storage.NameHosted }

// OwnerID is the user every query of this provider is scoped to
func (p *Provider) OwnerID() string { return p.ownerID }

func (p *Provider) db(ctx context.Context) *gorm.DB {
	return p.store.db.WithContext(ctx)
}

func (p *Provider) Ping(ctx context.Context) error {
	sqlDB, err := p.store.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// filteredJobs builds the owner scoped job query for a filter, without paging
func (p *Provider) filteredJobs(db *gorm.DB, filter domain.JobFilter) *gorm.DB {
	q := db.Model(&jobRow{}).Scopes(ownedBy(p.ownerID))
	if filter.Search != "" {
		pattern := "%" + storage.EscapeLike(strings.ToLower(filter.Search)) + "%"
		q = q.Where(`(LOWER(company) LIKE ? ESCAPE '\' OR LOWER(position) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Favorites {
		q = q.Where("is_favorite = ?", true)
	}
	return q
}

func (p *Provider) FetchJobs(ctx context.Context, filter domain.JobFilter) (*domain.JobList, error) {
	var total int64
	if err := p.filteredJobs(p.db(ctx), filter).Count(&total).Error; err != nil {
		return nil, wrap("count jobs", err)
	}

	var rows []jobRow
	err := p.filteredJobs(p.db(ctx), filter).
		Order("application_date DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list jobs", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, fromJobRow(&rows[i]))
	}
	return &domain.JobList{Jobs: jobs, Pagination: domain.NewPagination(filter, int(total))}, nil
}

func (p *Provider) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	row, err := p.findJob(p.db(ctx), id)
	if err != nil {
		return nil, err
	}
	job := fromJobRow(row)
	return &job, nil
}

func (p *Provider) findJob(db *gorm.DB, id int64) (*jobRow, error) {
	var row jobRow
	err := db.Scopes(ownedBy(p.ownerID)).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, wrap("get job", err)
	}
	return &row, nil
}

// CreateJob stores the job and its applied event in one transaction
func (p *Provider) CreateJob(ctx context.Context, in domain.NewJob) (*domain.Job, error) {
	row := toJobRow(p.ownerID, in)
	err := p.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return wrap("create job", err)
		}
		job := fromJobRow(&row)
		evt := toEventRow(p.ownerID, domain.AppliedEvent(&job))
		if err := tx.Create(&evt).Error; err != nil {
			return wrap("create applied event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job := fromJobRow(&row)
	return &job, nil
}

func (p *Provider) UpdateJob(ctx context.Context, id int64, patch domain.JobPatch) error {
	res := p.db(ctx).Model(&jobRow{}).
		Scopes(ownedBy(p.ownerID)).
		Where("id = ?", id).
		Updates(jobUpdates(patch, p.store.now().UTC()))
	if res.Error != nil {
		return wrap("update job", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (p *Provider) DeleteJob(ctx context.Context, id int64) error {
	return p.db(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Scopes(ownedBy(p.ownerID)).Where("job_id = ?", id).Delete(&jobEventRow{}).Error
		if err != nil {
			return wrap("delete job events", err)
		}
		res := tx.Scopes(ownedBy(p.ownerID)).Where("id = ?", id).Delete(&jobRow{})
		if res.Error != nil {
			return wrap("delete job", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrJobNotFound
		}
		return nil
	})
}

func (p *Provider) ToggleFavorite(ctx context.Context, id int64, current bool) error {
	res := p.db(ctx).Model(&jobRow{}).
		Scopes(ownedBy(p.ownerID)).
		Where("id = ?", id).
		Updates(map[string]any{"is_favorite": !current, "updated_at": p.store.now().UTC()})
	if res.Error != nil {
		return wrap("toggle favorite", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (p *Provider) FetchJobEvents(ctx context.Context, jobID *int64) ([]domain.JobEvent, error) {
	q := p.db(ctx).Scopes(ownedBy(p.ownerID))
	if jobID != nil {
		q = q.Where("job_id = ?", *jobID)
	}
	var rows []jobEventRow
	if err := q.Order("event_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, wrap("list job events", err)
	}
	events := make([]domain.JobEvent, 0, len(rows))
	for i := range rows {
		events = append(events, fromEventRow(&rows[i]))
	}
	return events, nil
}

// CreateJobEvent stores the event, then writes the derived status as a
// separate best-effort step. A failed status write is reported, not returned.
func (p *Provider) CreateJobEvent(ctx context.Context, in domain.NewJobEvent) (*domain.JobEvent, error) {
	if _, err := p.findJob(p.db(ctx), in.JobID); err != nil {
		return nil, err
	}

	row := toEventRow(p.ownerID, in)
	if err := p.db(ctx).Create(&row).Error; err != nil {
		return nil, wrap("create job event", err)
	}
	evt := fromEventRow(&row)

	if err := p.applyDerivedStatus(ctx, &evt); err != nil {
		storage.ReportStatusFailure(ctx, p.store.logger, p.store.notifier, storage.StatusFailure{
			Provider: storage.NameHosted,
			OwnerID:  p.ownerID,
			JobID:    evt.JobID,
			EventID:  evt.ID,
			Err:      err,
		})
	}
	return &evt, nil
}

func (p *Provider) applyDerivedStatus(ctx context.Context, evt *domain.JobEvent) error {
	var latest int64
	err := p.db(ctx).Model(&jobEventRow{}).
		Scopes(ownedBy(p.ownerID)).
		Where("job_id = ? AND event_type = ?", evt.JobID, string(domain.EventInterviewResult)).
		Select("COALESCE(MAX(id), 0)").
		Scan(&latest).Error
	if err != nil {
		return fmt.Errorf("failed to find latest interview result: %w", err)
	}

	status, ok := domain.StatusChange(*evt, latest)
	if !ok {
		return nil
	}
	err = p.db(ctx).Model(&jobRow{}).
		Scopes(ownedBy(p.ownerID)).
		Where("id = ?", evt.JobID).
		Updates(map[string]any{"status": string(status), "updated_at": p.store.now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

func (p *Provider) UpdateJobEvent(ctx context.Context, id int64, patch domain.JobEventPatch) error {
	res := p.db(ctx).Model(&jobEventRow{}).
		Scopes(ownedBy(p.ownerID)).
		Where("id = ?", id).
		Updates(eventUpdates(patch, p.store.now().UTC()))
	if res.Error != nil {
		return wrap("update job event", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (p *Provider) DeleteJobEvent(ctx context.Context, id int64) error {
	res := p.db(ctx).Scopes(ownedBy(p.ownerID)).Where("id = ?", id).Delete(&jobEventRow{})
	if res.Error != nil {
		return wrap("delete job event", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (p *Provider) BulkDeleteJobEvents(ctx context.Context, jobID int64, types []domain.EventType) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	res := p.db(ctx).Scopes(ownedBy(p.ownerID)).
		Where("job_id = ? AND event_type IN ?", jobID, names).
		Delete(&jobEventRow{})
	if res.Error != nil {
		return 0, wrap("bulk delete job events", res.Error)
	}
	return res.RowsAffected, nil
}

func (p *Provider) FetchStats(ctx context.Context) (*domain.Stats, error) {
	var row statsRow
	err := p.db(ctx).Model(&jobRow{}).
		Scopes(ownedBy(p.ownerID)).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'interview' THEN 1 ELSE 0 END), 0) AS interviews,
			COALESCE(SUM(CASE WHEN status = 'offer' THEN 1 ELSE 0 END), 0) AS offers,
			COALESCE(SUM(CASE WHEN is_favorite THEN 1 ELSE 0 END), 0) AS favorites,
			COALESCE(SUM(CASE WHEN status = 'applied' THEN 1 ELSE 0 END), 0) AS applied,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0) AS accepted`).
		Scan(&row).Error
	if err != nil {
		return nil, wrap("fetch stats", err)
	}
	return row.toDomain(), nil
}

func (p *Provider) RecomputeStatus(ctx context.Context, jobID int64) (domain.Status, error) {
	var status domain.Status
	err := p.db(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := p.findJob(tx, jobID)
		if err != nil {
			return err
		}

		var rows []jobEventRow
		if err := tx.Scopes(ownedBy(p.ownerID)).Where("job_id = ?", jobID).Find(&rows).Error; err != nil {
			return wrap("load job events", err)
		}
		events := make([]domain.JobEvent, 0, len(rows))
		for i := range rows {
			events = append(events, fromEventRow(&rows[i]))
		}

		status = domain.RecomputeStatus(events)
		if string(status) == job.Status {
			return nil
		}
		err = tx.Model(&jobRow{}).
			Scopes(ownedBy(p.ownerID)).
			Where("id = ?", jobID).
			Updates(map[string]any{"status": string(status), "updated_at": p.store.now().UTC()}).Error
		if err != nil {
			return wrap("write reconciled status", err)
		}
		p.store.logger.Info("Reconciled job status",
			slog.Int64("job_id", jobID),
			slog.String("from", job.Status),
			slog.String("to", string(status)),
		)
		return nil
	})
	return status, err
}

// wrap marks connection level failures as ErrProviderUnavailable
func wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrInvalidDB) || isConnError(err) {
		return fmt.Errorf("failed to %s: %w: %v", op, domain.ErrProviderUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConnError(err error) bool {
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr)
}
