package dto

import (
	"encoding/json"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

type CreateJobEventRequest struct {
	JobID           int64                  `json:"jobId"`
	EventType       domain.EventType       `json:"eventType"`
	EventDate       domain.WallTime        `json:"eventDate"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	InterviewRound  *int                   `json:"interviewRound"`
	InterviewType   domain.InterviewType   `json:"interviewType"`
	InterviewLink   string                 `json:"interviewLink"`
	InterviewResult domain.InterviewResult `json:"interviewResult"`
	Notes           string                 `json:"notes"`
	Metadata        json.RawMessage        `json:"metadata"`
}

func (r CreateJobEventRequest) ToDomain() domain.NewJobEvent {
	return domain.NewJobEvent{
		JobID:           r.JobID,
		EventType:       r.EventType,
		EventDate:       r.EventDate,
		Title:           r.Title,
		Description:     r.Description,
		InterviewRound:  r.InterviewRound,
		InterviewType:   r.InterviewType,
		InterviewLink:   r.InterviewLink,
		InterviewResult: r.InterviewResult,
		Notes:           r.Notes,
		Metadata:        normalizeMetadata(r.Metadata),
	}
}

type UpdateJobEventRequest struct {
	EventType       *domain.EventType       `json:"eventType"`
	EventDate       *domain.WallTime        `json:"eventDate"`
	Title           *string                 `json:"title"`
	Description     *string                 `json:"description"`
	InterviewRound  *int                    `json:"interviewRound"`
	InterviewType   *domain.InterviewType   `json:"interviewType"`
	InterviewLink   *string                 `json:"interviewLink"`
	InterviewResult *domain.InterviewResult `json:"interviewResult"`
	Notes           *string                 `json:"notes"`
	Metadata        json.RawMessage         `json:"metadata"`
}

func (r UpdateJobEventRequest) ToDomain() domain.JobEventPatch {
	return domain.JobEventPatch{
		EventType:       r.EventType,
		EventDate:       r.EventDate,
		Title:           r.Title,
		Description:     r.Description,
		InterviewRound:  r.InterviewRound,
		InterviewType:   r.InterviewType,
		InterviewLink:   r.InterviewLink,
		InterviewResult: r.InterviewResult,
		Notes:           r.Notes,
		Metadata:        normalizeMetadata(r.Metadata),
	}
}

type ListJobEventsRequest struct {
	JobID *int64 `form:"jobId"`
}

type BulkDeleteJobEventsRequest struct {
	JobID      int64              `json:"jobId" binding:"required"`
	EventTypes []domain.EventType `json:"eventTypes" binding:"required,min=1"`
}

type BulkDeleteJobEventsResponse struct {
	Deleted int64 `json:"deleted"`
}

type JobEventDTO struct {
	ID              int64                  `json:"id"`
	JobID           int64                  `json:"jobId"`
	EventType       domain.EventType       `json:"eventType"`
	EventDate       domain.WallTime        `json:"eventDate"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	InterviewRound  *int                   `json:"interviewRound"`
	InterviewType   domain.InterviewType   `json:"interviewType,omitempty"`
	InterviewLink   string                 `json:"interviewLink"`
	InterviewResult domain.InterviewResult `json:"interviewResult,omitempty"`
	Notes           string                 `json:"notes"`
	Metadata        json.RawMessage        `json:"metadata"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

func FromJobEvent(e *domain.JobEvent) JobEventDTO {
	return JobEventDTO{
		ID:              e.ID,
		JobID:           e.JobID,
		EventType:       e.EventType,
		EventDate:       e.EventDate,
		Title:           e.Title,
		Description:     e.Description,
		InterviewRound:  e.InterviewRound,
		InterviewType:   e.InterviewType,
		InterviewLink:   e.InterviewLink,
		InterviewResult: e.InterviewResult,
		Notes:           e.Notes,
		Metadata:        normalizeMetadata(e.Metadata),
		CreatedAt:       formatTimestamp(e.CreatedAt),
		UpdatedAt:       formatTimestamp(e.UpdatedAt),
	}
}

func FromJobEvents(events []domain.JobEvent) []JobEventDTO {
	out := make([]JobEventDTO, len(events))
	for i := range events {
		out[i] = FromJobEvent(&events[i])
	}
	return out
}

type RecomputeStatusResponse struct {
	JobID  int64         `json:"jobId"`
	Status domain.Status `json:"status"`
}
