package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the application status of a job
type Status string

const (
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusRejected  Status = "rejected"
	StatusOffer     Status = "offer"
	StatusAccepted  Status = "accepted"
)

// Statuses lists every valid job status
var Statuses = []Status{StatusApplied, StatusInterview, StatusRejected, StatusOffer, StatusAccepted}

// ParseStatus converts a string into a Status, rejecting unknown values
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Valid reports whether s is one of the enumerated statuses
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusInterview, StatusRejected, StatusOffer, StatusAccepted:
		return true
	}
	return false
}

// EventType is the kind of a job lifecycle event
type EventType string

const (
	EventApplied            EventType = "applied"
	EventInterviewScheduled EventType = "interview_scheduled"
	EventInterview          EventType = "interview"
	EventInterviewResult    EventType = "interview_result"
	EventRejected           EventType = "rejected"
	EventOfferReceived      EventType = "offer_received"
	EventOfferAccepted      EventType = "offer_accepted"
	EventOfferDeclined      EventType = "offer_declined"
	EventWithdrawn          EventType = "withdrawn"
	EventGhosted            EventType = "ghosted"
)

var eventLabels = map[EventType]string{
	EventApplied:            "Applied",
	EventInterviewScheduled: "Interview Scheduled",
	EventInterview:          "Interview",
	EventInterviewResult:    "Interview Result",
	EventRejected:           "Rejected",
	EventOfferReceived:      "Offer Received",
	EventOfferAccepted:      "Offer Accepted",
	EventOfferDeclined:      "Offer Declined",
	EventWithdrawn:          "Withdrawn",
	EventGhosted:            "Ghosted",
}

// ParseEventType converts a string into an EventType, rejecting unknown values
func ParseEventType(s string) (EventType, error) {
	et := EventType(strings.TrimSpace(s))
	if !et.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, s)
	}
	return et, nil
}

// Valid reports whether e is a known event type
func (e EventType) Valid() bool {
	_, ok := eventLabels[e]
	return ok
}

// Label is the default display title for events of this type
func (e EventType) Label() string {
	return eventLabels[e]
}

// IsInterview reports whether interview round/type/link are meaningful for the event
func (e EventType) IsInterview() bool {
	return e == EventInterviewScheduled || e == EventInterview
}

// InterviewType is the format of an interview
type InterviewType string

const (
	InterviewPhone     InterviewType = "phone"
	InterviewVideo     InterviewType = "video"
	InterviewOnsite    InterviewType = "onsite"
	InterviewTechnical InterviewType = "technical"
	InterviewHR        InterviewType = "hr"
	InterviewFinal     InterviewType = "final"
	InterviewOA        InterviewType = "oa"
	InterviewVO        InterviewType = "vo"
)

// Valid reports whether t is a known interview type
func (t InterviewType) Valid() bool {
	switch t {
	case InterviewPhone, InterviewVideo, InterviewOnsite, InterviewTechnical,
		InterviewHR, InterviewFinal, InterviewOA, InterviewVO:
		return true
	}
	return false
}

// InterviewResult is the outcome recorded for an interview
type InterviewResult string

const (
	ResultPending   InterviewResult = "pending"
	ResultPassed    InterviewResult = "passed"
	ResultFailed    InterviewResult = "failed"
	ResultWaiting   InterviewResult = "waiting"
	ResultCancelled InterviewResult = "cancelled"
)

// Valid reports whether r is a known interview result
func (r InterviewResult) Valid() bool {
	switch r {
	case ResultPending, ResultPassed, ResultFailed, ResultWaiting, ResultCancelled:
		return true
	}
	return false
}

// Job is a tracked application to a single position at a company
type Job struct {
	ID               int64
	Company          string
	Position         string
	JobURL           string
	ApplicationDate  Date
	Status           Status
	Location         string
	Notes            string
	Latitude         *float64
	Longitude        *float64
	FormattedAddress string
	PlaceID          string
	IsFavorite       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// JobEvent is a single entry of a job's lifecycle
type JobEvent struct {
	ID              int64
	JobID           int64
	EventType       EventType
	EventDate       WallTime
	Title           string
	Description     string
	InterviewRound  *int
	InterviewType   InterviewType
	InterviewLink   string
	InterviewResult InterviewResult
	Notes           string
	Metadata        json.RawMessage
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewJob holds the fields accepted when creating a job
type NewJob struct {
	Company          string
	Position         string
	JobURL           string
	ApplicationDate  Date
	Status           Status
	Location         string
	Notes            string
	Latitude         *float64
	Longitude        *float64
	FormattedAddress string
	PlaceID          string
	IsFavorite       bool
}

// JobPatch is a partial job update; nil fields keep their stored value
type JobPatch struct {
	Company          *string
	Position         *string
	JobURL           *string
	ApplicationDate  *Date
	Status           *Status
	Location         *string
	Notes            *string
	Latitude         *float64
	Longitude        *float64
	FormattedAddress *string
	PlaceID          *string
	IsFavorite       *bool
}

// NewJobEvent holds the fields accepted when creating an event
type NewJobEvent struct {
	JobID           int64
	EventType       EventType
	EventDate       WallTime
	Title           string
	Description     string
	InterviewRound  *int
	InterviewType   InterviewType
	InterviewLink   string
	InterviewResult InterviewResult
	Notes           string
	Metadata        json.RawMessage
}

// JobEventPatch is a partial event update; nil fields keep their stored value
type JobEventPatch struct {
	EventType       *EventType
	EventDate       *WallTime
	Title           *string
	Description     *string
	InterviewRound  *int
	InterviewType   *InterviewType
	InterviewLink   *string
	InterviewResult *InterviewResult
	Notes           *string
	Metadata        json.RawMessage
}

// AppliedEvent builds the lifecycle event recorded together with a new job
func AppliedEvent(job *Job) NewJobEvent {
	return NewJobEvent{
		JobID:     job.ID,
		EventType: EventApplied,
		EventDate: WallTimeFromDate(job.ApplicationDate),
		Title:     EventApplied.Label(),
	}
}

// ParsedPosting is the structured result of parsing a free-text job posting
type ParsedPosting struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	Description string `json:"description"`
}
