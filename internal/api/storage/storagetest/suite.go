// Package storagetest holds the behaviour suite every storage provider must pass.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// NewProviderFunc returns an empty provider for a single subtest
type NewProviderFunc func(t *testing.T) storage.Provider

// RunProviderSuite runs the shared provider behaviour tests
func RunProviderSuite(t *testing.T, newProvider NewProviderFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, p storage.Provider)
	}{
		{"create job applies defaults", testCreateJobDefaults},
		{"get missing job", testGetMissingJob},
		{"update job keeps absent fields", testUpdateJob},
		{"toggle favorite", testToggleFavorite},
		{"delete job cascades", testDeleteJobCascades},
		{"fetch jobs filters", testFetchJobsFilters},
		{"fetch jobs pagination", testFetchJobsPagination},
		{"event creation derives status", testEventDerivesStatus},
		{"superseded failed result", testSupersededFailedResult},
		{"event for missing job", testEventForMissingJob},
		{"update and delete events", testUpdateDeleteEvents},
		{"bulk delete events", testBulkDeleteEvents},
		{"event ordering", testEventOrdering},
		{"event date round trip", testEventDateRoundTrip},
		{"stats", testStats},
		{"recompute status", testRecomputeStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newProvider(t))
		})
	}
}

func date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustCreateJob(t *testing.T, p storage.Provider, company, position, applied string) *domain.Job {
	t.Helper()
	in := domain.NewJob{Company: company, Position: position, ApplicationDate: date(applied)}
	require.NoError(t, in.Prepare(time.UTC))
	job, err := p.CreateJob(context.Background(), in)
	require.NoError(t, err)
	return job
}

func mustCreateEvent(t *testing.T, p storage.Provider, in domain.NewJobEvent) *domain.JobEvent {
	t.Helper()
	require.NoError(t, in.Prepare(time.UTC))
	evt, err := p.CreateJobEvent(context.Background(), in)
	require.NoError(t, err)
	return evt
}

func testCreateJobDefaults(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Backend Engineer", "2024-03-01")

	assert.Positive(t, job.ID)
	assert.Equal(t, domain.StatusApplied, job.Status)
	assert.False(t, job.IsFavorite)
	assert.Equal(t, "2024-03-01", job.ApplicationDate.String())

	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Backend Engineer", got.Position)

	events, err := p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventApplied, events[0].EventType)
	assert.Equal(t, "2024-03-01", events[0].EventDate.String())
	assert.Equal(t, "Applied", events[0].Title)
}

func testGetMissingJob(t *testing.T, p storage.Provider) {
	_, err := p.GetJob(context.Background(), 424242)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func testUpdateJob(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")

	notes := "referral from Sam"
	status := domain.StatusInterview
	lat := 52.52
	require.NoError(t, p.UpdateJob(ctx, job.ID, domain.JobPatch{Notes: &notes, Status: &status, Latitude: &lat}))

	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "Engineer", got.Position)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, domain.StatusInterview, got.Status)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, lat, *got.Latitude, 1e-9)
	assert.Nil(t, got.Longitude)

	err = p.UpdateJob(ctx, 424242, domain.JobPatch{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func testToggleFavorite(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")

	require.NoError(t, p.ToggleFavorite(ctx, job.ID, false))
	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)

	// a repeated toggle from the same stale view is idempotent
	require.NoError(t, p.ToggleFavorite(ctx, job.ID, false))
	got, err = p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)

	require.NoError(t, p.ToggleFavorite(ctx, job.ID, true))
	got, err = p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite)

	assert.ErrorIs(t, p.ToggleFavorite(ctx, 424242, false), domain.ErrJobNotFound)
}

func testDeleteJobCascades(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	keep := mustCreateJob(t, p, "Keep", "Engineer", "2024-03-01")
	job := mustCreateJob(t, p, "Drop", "Engineer", "2024-03-02")
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview})

	require.NoError(t, p.DeleteJob(ctx, job.ID))

	_, err := p.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	events, err := p.FetchJobEvents(ctx, nil)
	require.NoError(t, err)
	for _, e := range events {
		assert.Equal(t, keep.ID, e.JobID, "events of the deleted job must be gone")
	}
	assert.Len(t, events, 1)

	assert.ErrorIs(t, p.DeleteJob(ctx, job.ID), domain.ErrJobNotFound)
}

func testFetchJobsFilters(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	acme := mustCreateJob(t, p, "Acme", "Go Developer", "2024-01-10")
	mustCreateJob(t, p, "Globex", "Frontend Engineer", "2024-01-11")
	initech := mustCreateJob(t, p, "Initech", "Platform Engineer", "2024-01-12")
	mustCreateJob(t, p, "100% Remote", "Support", "2024-01-13")
	mustCreateJob(t, p, "1000 Startups", "Sales", "2024-01-14")

	require.NoError(t, p.ToggleFavorite(ctx, acme.ID, false))
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: initech.ID, EventType: domain.EventInterviewScheduled})

	tests := []struct {
		name   string
		filter domain.JobFilter
		want   []string
	}{
		{name: "all newest first", filter: domain.JobFilter{}, want: []string{"1000 Startups", "100% Remote", "Initech", "Globex", "Acme"}},
		{name: "search company case insensitive", filter: domain.JobFilter{Search: "gLoBeX"}, want: []string{"Globex"}},
		{name: "search position", filter: domain.JobFilter{Search: "engineer"}, want: []string{"Initech", "Globex"}},
		{name: "wildcards match literally", filter: domain.JobFilter{Search: "100%"}, want: []string{"100% Remote"}},
		{name: "status filter", filter: domain.JobFilter{Status: domain.StatusInterview}, want: []string{"Initech"}},
		{name: "favorites", filter: domain.JobFilter{Favorites: true}, want: []string{"Acme"}},
		{name: "no match", filter: domain.JobFilter{Search: "umbrella"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := p.FetchJobs(ctx, tt.filter.Normalize())
			require.NoError(t, err)
			got := make([]string, 0, len(list.Jobs))
			for _, j := range list.Jobs {
				got = append(got, j.Company)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), list.Pagination.Total)
		})
	}
}

func testFetchJobsPagination(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	// several jobs share an application date so the id tie-break decides the order
	for i := 0; i < 7; i++ {
		mustCreateJob(t, p, fmt.Sprintf("Company %d", i), "Engineer", fmt.Sprintf("2024-02-0%d", 1+i/3))
	}

	var seen []int64
	for page := 1; page <= 3; page++ {
		list, err := p.FetchJobs(ctx, domain.JobFilter{Page: page, Limit: 3}.Normalize())
		require.NoError(t, err)
		assert.Equal(t, 7, list.Pagination.Total)
		assert.Equal(t, 3, list.Pagination.TotalPages)
		assert.Equal(t, page, list.Pagination.Page)
		for _, j := range list.Jobs {
			seen = append(seen, j.ID)
		}
	}

	all, err := p.FetchJobs(ctx, domain.JobFilter{Limit: 100}.Normalize())
	require.NoError(t, err)
	require.Len(t, all.Jobs, 7)
	want := make([]int64, 0, 7)
	for i, j := range all.Jobs {
		want = append(want, j.ID)
		if i > 0 {
			prev := all.Jobs[i-1]
			cmp := prev.ApplicationDate.Compare(j.ApplicationDate)
			assert.True(t, cmp > 0 || (cmp == 0 && prev.ID > j.ID), "jobs must be ordered by date desc, id desc")
		}
	}
	assert.Equal(t, want, seen, "pages concatenate to the full ordered list")

	beyond, err := p.FetchJobs(ctx, domain.JobFilter{Page: 9, Limit: 3}.Normalize())
	require.NoError(t, err)
	assert.Empty(t, beyond.Jobs)
	assert.Equal(t, 7, beyond.Pagination.Total)

	huge, err := p.FetchJobs(ctx, domain.JobFilter{Page: math.MaxInt, Limit: 10}.Normalize())
	require.NoError(t, err)
	assert.Empty(t, huge.Jobs)
	assert.Equal(t, 7, huge.Pagination.Total)
	assert.Equal(t, domain.MaxPage, huge.Pagination.Page)
}

func testEventDerivesStatus(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")

	steps := []struct {
		evt  domain.NewJobEvent
		want domain.Status
	}{
		{evt: domain.NewJobEvent{EventType: domain.EventInterviewScheduled}, want: domain.StatusInterview},
		{evt: domain.NewJobEvent{EventType: domain.EventInterviewResult, InterviewResult: domain.ResultPassed}, want: domain.StatusInterview},
		{evt: domain.NewJobEvent{EventType: domain.EventGhosted}, want: domain.StatusInterview},
		{evt: domain.NewJobEvent{EventType: domain.EventOfferReceived}, want: domain.StatusOffer},
		{evt: domain.NewJobEvent{EventType: domain.EventOfferAccepted}, want: domain.StatusAccepted},
		{evt: domain.NewJobEvent{EventType: domain.EventRejected}, want: domain.StatusRejected},
	}

	for _, step := range steps {
		step.evt.JobID = job.ID
		mustCreateEvent(t, p, step.evt)
		got, err := p.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.Status, "after %s", step.evt.EventType)
	}

	other := mustCreateJob(t, p, "Globex", "Engineer", "2024-03-02")
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: other.ID, EventType: domain.EventInterview})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: other.ID, EventType: domain.EventInterviewResult, InterviewResult: domain.ResultFailed})
	got, err := p.GetJob(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
}

func testSupersededFailedResult(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview})
	failed := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterviewResult, InterviewResult: domain.ResultPassed})

	// editing an older result to failed does not touch the status: derivation runs on creation only
	result := domain.ResultFailed
	require.NoError(t, p.UpdateJobEvent(ctx, failed.ID, domain.JobEventPatch{InterviewResult: &result}))
	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterview, got.Status)

	status, err := p.RecomputeStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, status, "the failed result is still the latest interview_result")

	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterviewResult, InterviewResult: domain.ResultPassed})
	status, err = p.RecomputeStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterview, status)
}

func testEventForMissingJob(t *testing.T, p storage.Provider) {
	in := domain.NewJobEvent{JobID: 424242, EventType: domain.EventInterview}
	require.NoError(t, in.Prepare(time.UTC))
	_, err := p.CreateJobEvent(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func testUpdateDeleteEvents(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")
	round := 2
	evt := mustCreateEvent(t, p, domain.NewJobEvent{
		JobID:          job.ID,
		EventType:      domain.EventInterview,
		InterviewRound: &round,
		InterviewType:  domain.InterviewVideo,
		InterviewLink:  "https://meet.example.com/abc",
		Metadata:       json.RawMessage(`{"panel":["a","b"]}`),
	})
	assert.Equal(t, "Interview", evt.Title)
	require.NotNil(t, evt.InterviewRound)
	assert.Equal(t, 2, *evt.InterviewRound)

	title := "Final loop"
	notes := "bring portfolio"
	require.NoError(t, p.UpdateJobEvent(ctx, evt.ID, domain.JobEventPatch{Title: &title, Notes: &notes}))

	events, err := p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	var found *domain.JobEvent
	for i := range events {
		if events[i].ID == evt.ID {
			found = &events[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, title, found.Title)
	assert.Equal(t, notes, found.Notes)
	assert.Equal(t, domain.InterviewVideo, found.InterviewType)
	assert.Equal(t, "https://meet.example.com/abc", found.InterviewLink)
	assert.JSONEq(t, `{"panel":["a","b"]}`, string(found.Metadata))

	assert.ErrorIs(t, p.UpdateJobEvent(ctx, 424242, domain.JobEventPatch{Title: &title}), domain.ErrEventNotFound)

	require.NoError(t, p.DeleteJobEvent(ctx, evt.ID))
	assert.ErrorIs(t, p.DeleteJobEvent(ctx, evt.ID), domain.ErrEventNotFound)

	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInterview, got.Status, "deleting an event leaves the status alone")
}

func testBulkDeleteEvents(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")
	other := mustCreateJob(t, p, "Globex", "Engineer", "2024-03-01")
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventGhosted})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: other.ID, EventType: domain.EventInterview})

	n, err := p.BulkDeleteJobEvents(ctx, job.ID, []domain.EventType{domain.EventInterview, domain.EventWithdrawn})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	events, err := p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	types := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.ElementsMatch(t, []domain.EventType{domain.EventApplied, domain.EventGhosted}, types)

	otherEvents, err := p.FetchJobEvents(ctx, &other.ID)
	require.NoError(t, err)
	assert.Len(t, otherEvents, 2)

	n, err = p.BulkDeleteJobEvents(ctx, job.ID, []domain.EventType{domain.EventInterview})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testEventOrdering(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")
	at := func(s string) domain.WallTime {
		w, err := domain.ParseWallTime(s)
		require.NoError(t, err)
		return w
	}
	late := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview, EventDate: at("2024-03-10T09:00")})
	sameDay1 := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventGhosted, EventDate: at("2024-03-05")})
	sameDay2 := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventWithdrawn, EventDate: at("2024-03-05")})

	events, err := p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, late.ID, events[0].ID)
	assert.Equal(t, sameDay2.ID, events[1].ID)
	assert.Equal(t, sameDay1.ID, events[2].ID)
	assert.Equal(t, domain.EventApplied, events[3].EventType)

	other := mustCreateJob(t, p, "Globex", "Engineer", "2024-03-02")
	all, err := p.FetchJobEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	none, err := p.FetchJobEvents(ctx, &other.ID)
	require.NoError(t, err)
	assert.Len(t, none, 1)
}

func testEventDateRoundTrip(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-12-31")
	at, err := domain.ParseWallTime("2024-12-31T23:30:00")
	require.NoError(t, err)
	evt := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview, EventDate: at})
	assert.Equal(t, "2024-12-31T23:30:00", evt.EventDate.String())

	midnight, err := domain.ParseWallTime("2025-01-02T00:00")
	require.NoError(t, err)
	call := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterviewScheduled, EventDate: midnight})
	assert.Equal(t, "2025-01-02T00:00:00", call.EventDate.String())

	events, err := p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "2025-01-02T00:00:00", events[0].EventDate.String(), "an explicit midnight keeps its time")
	assert.Equal(t, "2024-12-31T23:30:00", events[1].EventDate.String())
	assert.Equal(t, "2024-12-31", events[2].EventDate.String())

	// other fields leave the date form alone; a new date brings its own form
	notes := "moved"
	require.NoError(t, p.UpdateJobEvent(ctx, call.ID, domain.JobEventPatch{Notes: &notes}))
	events, err = p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T00:00:00", events[0].EventDate.String())

	dayOnly, err := domain.ParseWallTime("2025-01-03")
	require.NoError(t, err)
	require.NoError(t, p.UpdateJobEvent(ctx, call.ID, domain.JobEventPatch{EventDate: &dayOnly}))
	events, err = p.FetchJobEvents(ctx, &job.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03", events[0].EventDate.String())

	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", got.ApplicationDate.String())
}

func testStats(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	empty, err := p.FetchStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, *empty)

	a := mustCreateJob(t, p, "A", "Engineer", "2024-01-01")
	b := mustCreateJob(t, p, "B", "Engineer", "2024-01-02")
	c := mustCreateJob(t, p, "C", "Engineer", "2024-01-03")
	mustCreateJob(t, p, "D", "Engineer", "2024-01-04")
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: a.ID, EventType: domain.EventInterview})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: b.ID, EventType: domain.EventOfferReceived})
	mustCreateEvent(t, p, domain.NewJobEvent{JobID: c.ID, EventType: domain.EventRejected})
	require.NoError(t, p.ToggleFavorite(ctx, b.ID, false))

	stats, err := p.FetchStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{
		TotalApplications: 4,
		ActiveInterviews:  1,
		OffersReceived:    1,
		Favorites:         1,
		AppliedCount:      1,
		RejectedCount:     1,
	}, *stats)
}

func testRecomputeStatus(t *testing.T, p storage.Provider) {
	ctx := context.Background()
	job := mustCreateJob(t, p, "Acme", "Engineer", "2024-03-01")
	offer := mustCreateEvent(t, p, domain.NewJobEvent{JobID: job.ID, EventType: domain.EventOfferReceived})

	require.NoError(t, p.DeleteJobEvent(ctx, offer.ID))
	status, err := p.RecomputeStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, status)

	got, err := p.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, got.Status)

	_, err = p.RecomputeStatus(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
