package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

func TestListJobsRequest_ToDomain(t *testing.T) {
	tests := []struct {
		name       string
		req        ListJobsRequest
		wantStatus domain.Status
		wantPage   int
		wantLimit  int
		wantErr    bool
	}{
		{"no status", ListJobsRequest{}, "", 1, domain.DefaultPageSize, false},
		{"all", ListJobsRequest{Status: "all"}, "", 1, domain.DefaultPageSize, false},
		{"all mixed case padded", ListJobsRequest{Status: "  ALL "}, "", 1, domain.DefaultPageSize, false},
		{"single status", ListJobsRequest{Status: "interview", Page: 2, Limit: 5}, domain.StatusInterview, 2, 5, false},
		{"limit capped", ListJobsRequest{Limit: 500}, "", 1, domain.MaxPageSize, false},
		{"unknown status", ListJobsRequest{Status: "hired"}, "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.req.ToDomain()

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, f.Status)
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantLimit, f.Limit)
		})
	}
}
