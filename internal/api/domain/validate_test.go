package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewJob_Prepare(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		in := NewJob{Company: "  Acme ", Position: "Engineer"}
		require.NoError(t, in.Prepare(time.UTC))
		assert.Equal(t, "Acme", in.Company)
		assert.Equal(t, StatusApplied, in.Status)
		assert.False(t, in.ApplicationDate.IsZero())
		assert.False(t, in.IsFavorite)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		in := NewJob{
			Company:         "Acme",
			Position:        "Engineer",
			Status:          StatusInterview,
			ApplicationDate: Date{Year: 2024, Month: time.February, Day: 1},
		}
		require.NoError(t, in.Prepare(time.UTC))
		assert.Equal(t, StatusInterview, in.Status)
		assert.Equal(t, "2024-02-01", in.ApplicationDate.String())
	})

	t.Run("collects every problem", func(t *testing.T) {
		in := NewJob{Status: "pending", Latitude: ptr(120.0)}
		err := in.Prepare(time.UTC)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 4)
	})
}

func TestJobPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   JobPatch
		wantErr bool
	}{
		{name: "empty patch", patch: JobPatch{}},
		{name: "status change", patch: JobPatch{Status: ptr(StatusOffer)}},
		{name: "blank company", patch: JobPatch{Company: ptr("   ")}, wantErr: true},
		{name: "unknown status", patch: JobPatch{Status: ptr(Status("archived"))}, wantErr: true},
		{name: "longitude out of range", patch: JobPatch{Longitude: ptr(-181.0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.True(t, (&JobPatch{}).Empty())
	assert.False(t, (&JobPatch{IsFavorite: ptr(true)}).Empty())
}

func TestNewJobEvent_Prepare(t *testing.T) {
	t.Run("defaults title and date", func(t *testing.T) {
		in := NewJobEvent{JobID: 1, EventType: EventOfferReceived}
		require.NoError(t, in.Prepare(time.UTC))
		assert.Equal(t, "Offer Received", in.Title)
		assert.False(t, in.EventDate.IsZero())
		assert.True(t, in.EventDate.DateOnly())
	})

	t.Run("keeps custom title", func(t *testing.T) {
		in := NewJobEvent{JobID: 1, EventType: EventInterview, Title: "Onsite loop"}
		require.NoError(t, in.Prepare(time.UTC))
		assert.Equal(t, "Onsite loop", in.Title)
	})

	tests := []struct {
		name string
		in   NewJobEvent
	}{
		{name: "missing job", in: NewJobEvent{EventType: EventApplied}},
		{name: "unknown type", in: NewJobEvent{JobID: 1, EventType: "called"}},
		{name: "zero round", in: NewJobEvent{JobID: 1, EventType: EventInterview, InterviewRound: ptr(0)}},
		{name: "unknown interview type", in: NewJobEvent{JobID: 1, EventType: EventInterview, InterviewType: "coffee"}},
		{name: "unknown result", in: NewJobEvent{JobID: 1, EventType: EventInterviewResult, InterviewResult: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.in.Prepare(time.UTC), ErrInvalidInput)
		})
	}
}

func TestJobEventPatch_Validate(t *testing.T) {
	assert.NoError(t, (&JobEventPatch{InterviewResult: ptr(ResultPassed)}).Validate())
	assert.ErrorIs(t, (&JobEventPatch{Title: ptr("")}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&JobEventPatch{EventType: ptr(EventType("nope"))}).Validate(), ErrInvalidInput)
}
