package database

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		contains  []string
		wantErr   bool
		errString string
	}{
		{
			name: "postgres",
			config: Config{
				Driver: DriverPostgres, Host: "localhost", Port: 5432, User: "app",
				Password: "secret", Database: "jobs_db", SSLMode: "disable",
			},
			contains: []string{"host=localhost", "port=5432", "dbname=jobs_db", "sslmode=disable"},
		},
		{
			name:     "empty driver defaults to postgres",
			config:   Config{Host: "db", Port: 5433, Database: "x"},
			contains: []string{"host=db", "port=5433"},
		},
		{
			name:     "sqlite enables foreign keys",
			config:   Config{Driver: DriverSQLite, Path: "/tmp/jobs.db"},
			contains: []string{"file:/tmp/jobs.db?", "foreign_keys%281%29", "_time_format=sqlite"},
		},
		{
			name:      "sqlite without path",
			config:    Config{Driver: DriverSQLite},
			wantErr:   true,
			errString: "sqlite path is required",
		},
		{
			name:      "unknown driver",
			config:    Config{Driver: "mysql"},
			wantErr:   true,
			errString: "unsupported database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := tt.config.DSN()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			for _, part := range tt.contains {
				assert.True(t, strings.Contains(dsn, part), "dsn %q should contain %q", dsn, part)
			}
		})
	}
}

func TestNewClient_SQLite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(&Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "jobs.db")}, logger)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, DriverSQLite, client.Driver())
	require.NoError(t, client.HealthCheck(context.Background()))

	var fk int
	require.NoError(t, client.GetDB().Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)

	assert.Equal(t, "SELECT * FROM jobs WHERE id = ?", client.GetDB().Rebind("SELECT * FROM jobs WHERE id = ?"))
	assert.Contains(t, client.Stats(), "MaxOpenConns: 1")
}

func TestClose_LogsPoolStats(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	client, err := NewClient(&Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "jobs.db")}, logger)
	require.NoError(t, err)

	require.NoError(t, client.Close())

	assert.Contains(t, logs.String(), "Closing database connection")
	assert.Contains(t, logs.String(), "MaxOpenConns: 1")
	assert.Error(t, client.HealthCheck(context.Background()))
}
