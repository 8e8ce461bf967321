package relational

import (
	"context"
	"fmt"

	"github.com/cuongbtq/job-tracker/shared/database"
)

// Column types differ per driver: postgres keeps DATE/TIMESTAMP, sqlite keeps
// sortable text so the values never pass through a time zone.
var schemas = map[string][]string{
	database.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS jobs (
			id BIGSERIAL PRIMARY KEY,
			company TEXT NOT NULL,
			position TEXT NOT NULL,
			job_url TEXT NOT NULL DEFAULT '',
			application_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'applied'
				CHECK (status IN ('applied', 'interview', 'rejected', 'offer', 'accepted')),
			location TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			formatted_address TEXT NOT NULL DEFAULT '',
			place_id TEXT NOT NULL DEFAULT '',
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_events (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			event_date TIMESTAMP NOT NULL,
			event_date_only BOOLEAN NOT NULL DEFAULT FALSE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			interview_round INTEGER CHECK (interview_round > 0),
			interview_type TEXT NOT NULL DEFAULT '',
			interview_link TEXT NOT NULL DEFAULT '',
			interview_result TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_application_date ON jobs(application_date DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_events_event_date ON job_events(event_date DESC, id DESC)`,
	},
	database.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company TEXT NOT NULL,
			position TEXT NOT NULL,
			job_url TEXT NOT NULL DEFAULT '',
			application_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'applied'
				CHECK (status IN ('applied', 'interview', 'rejected', 'offer', 'accepted')),
			location TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			formatted_address TEXT NOT NULL DEFAULT '',
			place_id TEXT NOT NULL DEFAULT '',
			is_favorite BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS job_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			event_type TEXT NOT NULL,
			event_date TEXT NOT NULL,
			event_date_only BOOLEAN NOT NULL DEFAULT FALSE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			interview_round INTEGER CHECK (interview_round > 0),
			interview_type TEXT NOT NULL DEFAULT '',
			interview_link TEXT NOT NULL DEFAULT '',
			interview_result TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_application_date ON jobs(application_date DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_events_event_date ON job_events(event_date DESC, id DESC)`,
	},
}

// Migrate creates the tables and indexes when they do not exist yet
func (p *Provider) Migrate(ctx context.Context) error {
	stmts, ok := schemas[p.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", p.driver)
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
