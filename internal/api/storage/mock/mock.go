// Package mock is an in-process provider backed by slices. Data lives only as
// long as the process and is shared by every caller of that process.
package mock

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

type Provider struct {
	mu     sync.Mutex
	jobs   []domain.Job
	events []domain.JobEvent
	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty mock provider. Call Seed to load demo data.
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
		now:    time.Now,
	}
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) Name() storage.Name { return storage.NameMock }

func (p *Provider) Ping(context.Context) error { return nil }

func (p *Provider) FetchJobs(_ context.Context, filter domain.JobFilter) (*domain.JobList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	matched := make([]domain.Job, 0, len(p.jobs))
	for i := range p.jobs {
		if filter.Matches(&p.jobs[i]) {
			matched = append(matched, cloneJob(p.jobs[i]))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if c := matched[i].ApplicationDate.Compare(matched[j].ApplicationDate); c != 0 {
			return c > 0
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(max(filter.Offset(), 0), total)
	end := min(start+max(filter.Limit, 0), total)

	return &domain.JobList{
		Jobs:       matched[start:end],
		Pagination: domain.NewPagination(filter, total),
	}, nil
}

func (p *Provider) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(id)
	if idx < 0 {
		return nil, domain.ErrJobNotFound
	}
	job := cloneJob(p.jobs[idx])
	return &job, nil
}

func (p *Provider) CreateJob(_ context.Context, in domain.NewJob) (*domain.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	job := domain.Job{
		ID:               p.nextJobID(),
		Company:          in.Company,
		Position:         in.Position,
		JobURL:           in.JobURL,
		ApplicationDate:  in.ApplicationDate,
		Status:           in.Status,
		Location:         in.Location,
		Notes:            in.Notes,
		Latitude:         cloneFloat(in.Latitude),
		Longitude:        cloneFloat(in.Longitude),
		FormattedAddress: in.FormattedAddress,
		PlaceID:          in.PlaceID,
		IsFavorite:       in.IsFavorite,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if job.Status == "" {
		job.Status = domain.StatusApplied
	}
	p.jobs = append(p.jobs, job)
	p.insertEvent(domain.AppliedEvent(&job))

	out := cloneJob(job)
	return &out, nil
}

func (p *Provider) UpdateJob(_ context.Context, id int64, patch domain.JobPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(id)
	if idx < 0 {
		return domain.ErrJobNotFound
	}
	job := &p.jobs[idx]
	setIf(&job.Company, patch.Company)
	setIf(&job.Position, patch.Position)
	setIf(&job.JobURL, patch.JobURL)
	setIf(&job.ApplicationDate, patch.ApplicationDate)
	setIf(&job.Status, patch.Status)
	setIf(&job.Location, patch.Location)
	setIf(&job.Notes, patch.Notes)
	setIf(&job.FormattedAddress, patch.FormattedAddress)
	setIf(&job.PlaceID, patch.PlaceID)
	setIf(&job.IsFavorite, patch.IsFavorite)
	if patch.Latitude != nil {
		job.Latitude = cloneFloat(patch.Latitude)
	}
	if patch.Longitude != nil {
		job.Longitude = cloneFloat(patch.Longitude)
	}
	job.UpdatedAt = p.now().UTC()
	return nil
}

// DeleteJob removes the job and then its events. Both happen under one lock
// so no reader sees the intermediate state.
func (p *Provider) DeleteJob(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(id)
	if idx < 0 {
		return domain.ErrJobNotFound
	}
	p.jobs = append(p.jobs[:idx], p.jobs[idx+1:]...)
	p.removeEvents(func(e *domain.JobEvent) bool { return e.JobID == id })
	return nil
}

func (p *Provider) ToggleFavorite(_ context.Context, id int64, current bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(id)
	if idx < 0 {
		return domain.ErrJobNotFound
	}
	p.jobs[idx].IsFavorite = !current
	p.jobs[idx].UpdatedAt = p.now().UTC()
	return nil
}

func (p *Provider) FetchJobEvents(_ context.Context, jobID *int64) ([]domain.JobEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.JobEvent, 0, len(p.events))
	for _, e := range p.events {
		if jobID != nil && e.JobID != *jobID {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[j].EventDate.Before(out[i].EventDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (p *Provider) CreateJobEvent(_ context.Context, in domain.NewJobEvent) (*domain.JobEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(in.JobID)
	if idx < 0 {
		return nil, domain.ErrJobNotFound
	}
	evt := p.insertEvent(in)

	// follow-up write of the derived status
	latest := domain.LatestInterviewResultID(p.jobEvents(in.JobID))
	if status, ok := domain.StatusChange(evt, latest); ok {
		p.jobs[idx].Status = status
		p.jobs[idx].UpdatedAt = p.now().UTC()
	}

	out := cloneEvent(evt)
	return &out, nil
}

func (p *Provider) UpdateJobEvent(_ context.Context, id int64, patch domain.JobEventPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.eventIndex(id)
	if idx < 0 {
		return domain.ErrEventNotFound
	}
	evt := &p.events[idx]
	setIf(&evt.EventType, patch.EventType)
	setIf(&evt.EventDate, patch.EventDate)
	setIf(&evt.Title, patch.Title)
	setIf(&evt.Description, patch.Description)
	setIf(&evt.InterviewType, patch.InterviewType)
	setIf(&evt.InterviewLink, patch.InterviewLink)
	setIf(&evt.InterviewResult, patch.InterviewResult)
	setIf(&evt.Notes, patch.Notes)
	if patch.InterviewRound != nil {
		r := *patch.InterviewRound
		evt.InterviewRound = &r
	}
	if patch.Metadata != nil {
		evt.Metadata = cloneRaw(patch.Metadata)
	}
	evt.UpdatedAt = p.now().UTC()
	return nil
}

func (p *Provider) DeleteJobEvent(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.eventIndex(id) < 0 {
		return domain.ErrEventNotFound
	}
	p.removeEvents(func(e *domain.JobEvent) bool { return e.ID == id })
	return nil
}

func (p *Provider) BulkDeleteJobEvents(_ context.Context, jobID int64, types []domain.EventType) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wanted := make(map[domain.EventType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	removed := p.removeEvents(func(e *domain.JobEvent) bool {
		_, ok := wanted[e.EventType]
		return e.JobID == jobID && ok
	})
	return int64(removed), nil
}

func (p *Provider) FetchStats(context.Context) (*domain.Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := &domain.Stats{}
	for i := range p.jobs {
		stats.Count(&p.jobs[i])
	}
	return stats, nil
}

func (p *Provider) RecomputeStatus(_ context.Context, jobID int64) (domain.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.jobIndex(jobID)
	if idx < 0 {
		return "", domain.ErrJobNotFound
	}
	status := domain.RecomputeStatus(p.jobEvents(jobID))
	if p.jobs[idx].Status != status {
		p.logger.Info("Reconciled job status",
			slog.Int64("job_id", jobID),
			slog.String("from", string(p.jobs[idx].Status)),
			slog.String("to", string(status)),
		)
		p.jobs[idx].Status = status
		p.jobs[idx].UpdatedAt = p.now().UTC()
	}
	return status, nil
}

// insertEvent appends a new event; callers hold the lock
func (p *Provider) insertEvent(in domain.NewJobEvent) domain.JobEvent {
	now := p.now().UTC()
	evt := domain.JobEvent{
		ID:              p.nextEventID(),
		JobID:           in.JobID,
		EventType:       in.EventType,
		EventDate:       in.EventDate,
		Title:           in.Title,
		Description:     in.Description,
		InterviewType:   in.InterviewType,
		InterviewLink:   in.InterviewLink,
		InterviewResult: in.InterviewResult,
		Notes:           in.Notes,
		Metadata:        cloneRaw(in.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.InterviewRound != nil {
		r := *in.InterviewRound
		evt.InterviewRound = &r
	}
	p.events = append(p.events, evt)
	return evt
}

func (p *Provider) jobEvents(jobID int64) []domain.JobEvent {
	var out []domain.JobEvent
	for _, e := range p.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}

func (p *Provider) removeEvents(match func(*domain.JobEvent) bool) int {
	kept := p.events[:0]
	removed := 0
	for i := range p.events {
		if match(&p.events[i]) {
			removed++
			continue
		}
		kept = append(kept, p.events[i])
	}
	p.events = kept
	return removed
}

func (p *Provider) jobIndex(id int64) int {
	for i := range p.jobs {
		if p.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Provider) eventIndex(id int64) int {
	for i := range p.events {
		if p.events[i].ID == id {
			return i
		}
	}
	return -1
}

// ids are max(existing)+1, so a deleted tail id can be handed out again
func (p *Provider) nextJobID() int64 {
	var maxID int64
	for i := range p.jobs {
		maxID = max(maxID, p.jobs[i].ID)
	}
	return maxID + 1
}

func (p *Provider) nextEventID() int64 {
	var maxID int64
	for i := range p.events {
		maxID = max(maxID, p.events[i].ID)
	}
	return maxID + 1
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneRaw(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return append(json.RawMessage(nil), m...)
}

func cloneJob(j domain.Job) domain.Job {
	j.Latitude = cloneFloat(j.Latitude)
	j.Longitude = cloneFloat(j.Longitude)
	return j
}

func cloneEvent(e domain.JobEvent) domain.JobEvent {
	if e.InterviewRound != nil {
		r := *e.InterviewRound
		e.InterviewRound = &r
	}
	e.Metadata = cloneRaw(e.Metadata)
	return e
}
