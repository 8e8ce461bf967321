package hosted

import (
	"context"
	"fmt"
)

// Row level security mirrors the owner scope for clients that query the hosted
// database directly with their own token. The API connects as table owner and
// relies on the ownedBy scope instead.
var rlsStatements = []string{
	`ALTER TABLE jobs ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE job_events ENABLE ROW LEVEL SECURITY`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE tablename = 'jobs' AND policyname = 'jobs_owner') THEN
			CREATE POLICY jobs_owner ON jobs
				USING (user_id = current_setting('request.jwt.claim.sub', true))
				WITH CHECK (user_id = current_setting('request.jwt.claim.sub', true));
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE tablename = 'job_events' AND policyname = 'job_events_owner') THEN
			CREATE POLICY job_events_owner ON job_events
				USING (user_id = current_setting('request.jwt.claim.sub', true))
				WITH CHECK (user_id = current_setting('request.jwt.claim.sub', true));
		END IF;
	END
	$$`,
}

// Migrate creates the hosted tables and their row level security policies
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&jobRow{}, &jobEventRow{}); err != nil {
		return fmt.Errorf("failed to migrate hosted schema: %w", err)
	}
	for _, stmt := range rlsStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply row level security: %w", err)
		}
	}
	return nil
}
