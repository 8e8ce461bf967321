package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name       string
		eventType  EventType
		result     InterviewResult
		wantStatus Status
		wantChange bool
	}{
		{name: "interview scheduled", eventType: EventInterviewScheduled, wantStatus: StatusInterview, wantChange: true},
		{name: "interview", eventType: EventInterview, wantStatus: StatusInterview, wantChange: true},
		{name: "rejected", eventType: EventRejected, wantStatus: StatusRejected, wantChange: true},
		{name: "offer received", eventType: EventOfferReceived, wantStatus: StatusOffer, wantChange: true},
		{name: "offer accepted", eventType: EventOfferAccepted, wantStatus: StatusAccepted, wantChange: true},
		{name: "failed interview result", eventType: EventInterviewResult, result: ResultFailed, wantStatus: StatusRejected, wantChange: true},
		{name: "passed interview result", eventType: EventInterviewResult, result: ResultPassed},
		{name: "interview result without outcome", eventType: EventInterviewResult},
		{name: "applied", eventType: EventApplied},
		{name: "offer declined", eventType: EventOfferDeclined},
		{name: "withdrawn", eventType: EventWithdrawn},
		{name: "ghosted", eventType: EventGhosted},
		{name: "result ignored for other types", eventType: EventGhosted, result: ResultFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, changed := DeriveStatus(tt.eventType, tt.result)
			assert.Equal(t, tt.wantChange, changed)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestStatusChange_LatestResultOnly(t *testing.T) {
	failed := JobEvent{ID: 7, EventType: EventInterviewResult, InterviewResult: ResultFailed}

	status, changed := StatusChange(failed, 7)
	assert.True(t, changed)
	assert.Equal(t, StatusRejected, status)

	// right after its insert a new result always holds the latest id
	status, changed = StatusChange(JobEvent{ID: 9, EventType: EventInterviewResult, InterviewResult: ResultFailed}, 9)
	assert.True(t, changed)
	assert.Equal(t, StatusRejected, status)

	_, changed = StatusChange(failed, 9)
	assert.False(t, changed, "an older failed result must not demote the job")

	offer := JobEvent{ID: 3, EventType: EventOfferReceived}
	status, changed = StatusChange(offer, 9)
	assert.True(t, changed)
	assert.Equal(t, StatusOffer, status)
}

func TestRecomputeStatus(t *testing.T) {
	tests := []struct {
		name   string
		events []JobEvent
		want   Status
	}{
		{
			name: "no events",
			want: StatusApplied,
		},
		{
			name: "only applied",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
			},
			want: StatusApplied,
		},
		{
			name: "interview then offer",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterviewScheduled},
				{ID: 3, EventType: EventOfferReceived},
			},
			want: StatusOffer,
		},
		{
			name: "creation order wins over slice order",
			events: []JobEvent{
				{ID: 3, EventType: EventOfferReceived},
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterview},
			},
			want: StatusOffer,
		},
		{
			name: "latest failed result rejects",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterview},
				{ID: 3, EventType: EventInterviewResult, InterviewResult: ResultFailed},
			},
			want: StatusRejected,
		},
		{
			name: "superseded failed result is ignored",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterview},
				{ID: 3, EventType: EventInterviewResult, InterviewResult: ResultFailed},
				{ID: 4, EventType: EventInterviewResult, InterviewResult: ResultPassed},
			},
			want: StatusInterview,
		},
		{
			name: "failed result entered later with an earlier date still decides",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterview},
				{ID: 3, EventType: EventInterviewResult, InterviewResult: ResultPassed, EventDate: NewWallTime(2024, time.May, 10, 9, 0, 0)},
				{ID: 4, EventType: EventInterviewResult, InterviewResult: ResultFailed, EventDate: NewWallTime(2024, time.May, 2, 9, 0, 0)},
			},
			want: StatusRejected,
		},
		{
			name: "non status events keep the current status",
			events: []JobEvent{
				{ID: 1, EventType: EventApplied},
				{ID: 2, EventType: EventInterview},
				{ID: 3, EventType: EventGhosted},
				{ID: 4, EventType: EventWithdrawn},
			},
			want: StatusInterview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecomputeStatus(tt.events))
		})
	}
}

func TestRecomputeStatus_DoesNotReorderInput(t *testing.T) {
	events := []JobEvent{{ID: 2, EventType: EventInterview}, {ID: 1, EventType: EventApplied}}
	RecomputeStatus(events)
	assert.Equal(t, int64(2), events[0].ID)
}

func TestLatestInterviewResultID(t *testing.T) {
	events := []JobEvent{
		{ID: 5, EventType: EventInterviewResult},
		{ID: 9, EventType: EventOfferReceived},
		{ID: 8, EventType: EventInterviewResult},
	}
	assert.Equal(t, int64(8), LatestInterviewResultID(events))
	assert.Zero(t, LatestInterviewResultID(nil))
}
