package hosted

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/internal/api/storage/storagetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dryRunDB renders SQL without a server
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=dry"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestOwnedByScope(t *testing.T) {
	p := NewStore(dryRunDB(t), discardLogger(), nil).ForOwner("user-1")

	var row jobRow
	stmt := p.store.db.Scopes(ownedBy(p.ownerID)).Where("id = ?", 7).Take(&row).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "jobs"`)
	assert.Contains(t, sql, "user_id = $")
	assert.Contains(t, sql, "id = $")
	assert.Contains(t, stmt.Vars, "user-1")
}

func TestFilteredJobsQuery(t *testing.T) {
	p := NewStore(dryRunDB(t), discardLogger(), nil).ForOwner("owner-9")

	filter := domain.JobFilter{Search: "50%_Off", Status: domain.StatusOffer, Favorites: true}.Normalize()
	var rows []jobRow
	stmt := p.filteredJobs(p.store.db, filter).
		Order("application_date DESC, id DESC").
		Limit(filter.Limit).
		Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "jobs"`)
	assert.Contains(t, sql, "user_id = $")
	assert.Contains(t, sql, "LOWER(company) LIKE $")
	assert.Contains(t, sql, `ESCAPE '\'`)
	assert.Contains(t, sql, "status = $")
	assert.Contains(t, sql, "is_favorite = $")
	assert.Contains(t, sql, "ORDER BY application_date DESC, id DESC")
	assert.Contains(t, stmt.Vars, "owner-9")
	assert.Contains(t, stmt.Vars, `%50\%\_off%`)
	assert.Contains(t, stmt.Vars, "offer")
	assert.Contains(t, stmt.Vars, true)
}

func TestFactory_RequiresOwner(t *testing.T) {
	store := NewStore(dryRunDB(t), discardLogger(), nil)
	factory := store.Factory()

	_, err := factory(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	p, err := factory(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, storage.NameHosted, p.Name())
	assert.Equal(t, "abc", p.(*Provider).OwnerID())
}

func TestJobRowTranslation(t *testing.T) {
	lat, lng := 48.85, 2.35
	in := domain.NewJob{
		Company:          "Acme",
		Position:         "Engineer",
		JobURL:           "https://acme.example/jobs/1",
		ApplicationDate:  domain.Date{Year: 2024, Month: time.April, Day: 2},
		Location:         "Paris",
		Notes:            "note",
		Latitude:         &lat,
		Longitude:        &lng,
		FormattedAddress: "1 Rue, Paris",
		PlaceID:          "place-1",
		IsFavorite:       true,
	}
	row := toJobRow("u1", in)
	assert.Equal(t, "u1", row.UserID)
	assert.Equal(t, "applied", row.Status, "empty status defaults to applied")

	row.ID = 12
	job := fromJobRow(&row)
	assert.Equal(t, int64(12), job.ID)
	assert.Equal(t, domain.StatusApplied, job.Status)
	assert.Equal(t, in.Company, job.Company)
	assert.Equal(t, in.JobURL, job.JobURL)
	assert.Equal(t, in.ApplicationDate, job.ApplicationDate)
	assert.Equal(t, in.Location, job.Location)
	assert.Equal(t, in.Notes, job.Notes)
	assert.Equal(t, &lat, job.Latitude)
	assert.Equal(t, &lng, job.Longitude)
	assert.Equal(t, in.FormattedAddress, job.FormattedAddress)
	assert.Equal(t, in.PlaceID, job.PlaceID)
	assert.True(t, job.IsFavorite)
}

func TestEventRowTranslation(t *testing.T) {
	round := 3
	at := domain.NewWallTime(2024, time.May, 6, 13, 30, 0)
	in := domain.NewJobEvent{
		JobID:           4,
		EventType:       domain.EventInterview,
		EventDate:       at,
		Title:           "Panel",
		Description:     "system design",
		InterviewRound:  &round,
		InterviewType:   domain.InterviewOnsite,
		InterviewLink:   "https://meet.example/x",
		InterviewResult: domain.ResultPending,
		Notes:           "n",
		Metadata:        json.RawMessage(`{"k":1}`),
	}
	row := toEventRow("u1", in)
	row.ID = 40
	evt := fromEventRow(&row)

	assert.Equal(t, int64(40), evt.ID)
	assert.Equal(t, in.JobID, evt.JobID)
	assert.Equal(t, in.EventType, evt.EventType)
	assert.True(t, in.EventDate.Equal(evt.EventDate))
	assert.Equal(t, in.Title, evt.Title)
	assert.Equal(t, in.Description, evt.Description)
	assert.Equal(t, 3, *evt.InterviewRound)
	assert.Equal(t, in.InterviewType, evt.InterviewType)
	assert.Equal(t, in.InterviewLink, evt.InterviewLink)
	assert.Equal(t, in.InterviewResult, evt.InterviewResult)
	assert.Equal(t, in.Notes, evt.Notes)
	assert.JSONEq(t, `{"k":1}`, string(evt.Metadata))

	empty := fromEventRow(&jobEventRow{})
	assert.Nil(t, empty.Metadata)
}

func TestEventRowTranslation_DateOnlyFlag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"date only", "2024-03-05", "2024-03-05"},
		{"explicit midnight", "2024-03-05T00:00", "2024-03-05T00:00:00"},
		{"afternoon", "2024-03-05T14:00", "2024-03-05T14:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, err := domain.ParseWallTime(tt.input)
			require.NoError(t, err)

			row := toEventRow("u1", domain.NewJobEvent{JobID: 1, EventType: domain.EventInterview, EventDate: at})
			assert.Equal(t, at.DateOnly(), row.EventDateOnly)
			assert.Equal(t, tt.want, fromEventRow(&row).EventDate.String())

			eu := eventUpdates(domain.JobEventPatch{EventDate: &at}, time.Time{})
			assert.Equal(t, at.DateOnly(), eu["event_date_only"])
		})
	}
}

func TestUpdatesOnlyIncludePresentFields(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notes := "updated"
	fav := false
	u := jobUpdates(domain.JobPatch{Notes: &notes, IsFavorite: &fav}, now)
	assert.Equal(t, map[string]any{"notes": "updated", "is_favorite": false, "updated_at": now}, u)

	result := domain.ResultFailed
	eu := eventUpdates(domain.JobEventPatch{InterviewResult: &result}, now)
	assert.Equal(t, map[string]any{"interview_result": "failed", "updated_at": now}, eu)
}

// TestProviderSuite runs against a real hosted Postgres when TEST_HOSTED_DSN is set
func TestProviderSuite(t *testing.T) {
	dsn := os.Getenv("TEST_HOSTED_DSN")
	if dsn == "" {
		t.Skip("TEST_HOSTED_DSN is not set")
	}

	db, err := Open(dsn, discardLogger())
	require.NoError(t, err)
	store := NewStore(db, discardLogger(), nil)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	storagetest.RunProviderSuite(t, func(t *testing.T) storage.Provider {
		require.NoError(t, db.Exec("TRUNCATE job_events, jobs RESTART IDENTITY CASCADE").Error)
		return store.ForOwner("suite-owner")
	})

	t.Run("rows of other owners are invisible", func(t *testing.T) {
		ctx := context.Background()
		alice := store.ForOwner("alice")
		bob := store.ForOwner("bob")

		in := domain.NewJob{Company: "Acme", Position: "Engineer"}
		require.NoError(t, in.Prepare(time.UTC))
		job, err := alice.CreateJob(ctx, in)
		require.NoError(t, err)

		_, err = bob.GetJob(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
		assert.ErrorIs(t, bob.DeleteJob(ctx, job.ID), domain.ErrJobNotFound)
		assert.ErrorIs(t, bob.ToggleFavorite(ctx, job.ID, false), domain.ErrJobNotFound)

		evt := domain.NewJobEvent{JobID: job.ID, EventType: domain.EventInterview}
		require.NoError(t, evt.Prepare(time.UTC))
		_, err = bob.CreateJobEvent(ctx, evt)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)

		stats, err := bob.FetchStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalApplications)
	})
}
