package mock

import (
	"log/slog"
	"time"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

type seedJob struct {
	job    domain.NewJob
	events []domain.NewJobEvent
}

// Seed loads a small demo data set relative to today in loc. Each job gets
// its applied event and derived status the same way a real create would.
func (p *Provider) Seed(loc *time.Location) {
	today := domain.Today(loc)
	daysAgo := func(n int) domain.Date {
		t := time.Date(today.Year, today.Month, today.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
		return domain.DateOf(t)
	}
	at := func(n, hour int) domain.WallTime {
		d := daysAgo(n)
		return domain.NewWallTime(d.Year, d.Month, d.Day, hour, 0, 0)
	}
	round := func(n int) *int { return &n }

	seeds := []seedJob{
		{
			job: domain.NewJob{Company: "Northwind Labs", Position: "Senior Backend Engineer", Location: "Berlin, DE",
				JobURL: "https://careers.northwind.example/backend", ApplicationDate: daysAgo(21), IsFavorite: true},
			events: []domain.NewJobEvent{
				{EventType: domain.EventInterviewScheduled, EventDate: at(14, 10), InterviewRound: round(1), InterviewType: domain.InterviewPhone},
				{EventType: domain.EventInterview, EventDate: at(7, 15), InterviewRound: round(2), InterviewType: domain.InterviewTechnical},
			},
		},
		{
			job: domain.NewJob{Company: "Contoso", Position: "Platform Engineer", Location: "Remote", ApplicationDate: daysAgo(30)},
			events: []domain.NewJobEvent{
				{EventType: domain.EventInterview, EventDate: at(20, 11), InterviewRound: round(1), InterviewType: domain.InterviewVideo},
				{EventType: domain.EventInterviewResult, EventDate: at(18, 9), InterviewResult: domain.ResultPassed},
				{EventType: domain.EventOfferReceived, EventDate: at(3, 16)},
			},
		},
		{
			job: domain.NewJob{Company: "Fabrikam", Position: "Site Reliability Engineer", Location: "Amsterdam, NL", ApplicationDate: daysAgo(45)},
			events: []domain.NewJobEvent{
				{EventType: domain.EventInterview, EventDate: at(35, 14), InterviewRound: round(1), InterviewType: domain.InterviewHR},
				{EventType: domain.EventInterviewResult, EventDate: at(33, 10), InterviewResult: domain.ResultFailed},
			},
		},
		{
			job: domain.NewJob{Company: "Tailspin Toys", Position: "Go Developer", Location: "London, UK", ApplicationDate: daysAgo(5)},
		},
		{
			job: domain.NewJob{Company: "Wide World Importers", Position: "Staff Engineer", ApplicationDate: daysAgo(60), IsFavorite: true},
			events: []domain.NewJobEvent{
				{EventType: domain.EventOfferReceived, EventDate: at(40, 12)},
				{EventType: domain.EventOfferAccepted, EventDate: at(38, 12)},
			},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range seeds {
		s.job.Status = domain.StatusApplied
		now := p.now().UTC()
		job := domain.Job{
			ID:              p.nextJobID(),
			Company:         s.job.Company,
			Position:        s.job.Position,
			JobURL:          s.job.JobURL,
			ApplicationDate: s.job.ApplicationDate,
			Status:          s.job.Status,
			Location:        s.job.Location,
			IsFavorite:      s.job.IsFavorite,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		p.jobs = append(p.jobs, job)
		p.insertEvent(domain.AppliedEvent(&job))

		for _, in := range s.events {
			in.JobID = job.ID
			in.Title = in.EventType.Label()
			p.insertEvent(in)
		}
		p.jobs[len(p.jobs)-1].Status = domain.RecomputeStatus(p.jobEvents(job.ID))
	}

	p.logger.Debug("Seeded mock provider", slog.Int("jobs", len(p.jobs)), slog.Int("events", len(p.events)))
}
