package relational

import (
	"encoding/json"
	"time"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

const jobColumns = `id, company, position, job_url, application_date, status, location, notes,
	latitude, longitude, formatted_address, place_id, is_favorite, created_at, updated_at`

const eventColumns = `id, job_id, event_type, event_date, event_date_only, title, description, interview_round,
	interview_type, interview_link, interview_result, notes, metadata, created_at, updated_at`

type jobRow struct {
	ID               int64       `db:"id"`
	Company          string      `db:"company"`
	Position         string      `db:"position"`
	JobURL           string      `db:"job_url"`
	ApplicationDate  domain.Date `db:"application_date"`
	Status           string      `db:"status"`
	Location         string      `db:"location"`
	Notes            string      `db:"notes"`
	Latitude         *float64    `db:"latitude"`
	Longitude        *float64    `db:"longitude"`
	FormattedAddress string      `db:"formatted_address"`
	PlaceID          string      `db:"place_id"`
	IsFavorite       bool        `db:"is_favorite"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r *jobRow) toDomain() domain.Job {
	return domain.Job{
		ID:               r.ID,
		Company:          r.Company,
		Position:         r.Position,
		JobURL:           r.JobURL,
		ApplicationDate:  r.ApplicationDate,
		Status:           domain.Status(r.Status),
		Location:         r.Location,
		Notes:            r.Notes,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		IsFavorite:       r.IsFavorite,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type eventRow struct {
	ID              int64           `db:"id"`
	JobID           int64           `db:"job_id"`
	EventType       string          `db:"event_type"`
	EventDate       domain.WallTime `db:"event_date"`
	EventDateOnly   bool            `db:"event_date_only"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	InterviewRound  *int            `db:"interview_round"`
	InterviewType   string          `db:"interview_type"`
	InterviewLink   string          `db:"interview_link"`
	InterviewResult string          `db:"interview_result"`
	Notes           string          `db:"notes"`
	Metadata        []byte          `db:"metadata"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r *eventRow) toDomain() domain.JobEvent {
	var metadata json.RawMessage
	if len(r.Metadata) > 0 {
		metadata = json.RawMessage(r.Metadata)
	}
	return domain.JobEvent{
		ID:              r.ID,
		JobID:           r.JobID,
		EventType:       domain.EventType(r.EventType),
		EventDate:       r.EventDate.WithDateOnly(r.EventDateOnly),
		Title:           r.Title,
		Description:     r.Description,
		InterviewRound:  r.InterviewRound,
		InterviewType:   domain.InterviewType(r.InterviewType),
		InterviewLink:   r.InterviewLink,
		InterviewResult: domain.InterviewResult(r.InterviewResult),
		Notes:           r.Notes,
		Metadata:        metadata,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type statsRow struct {
	Total      int64 `db:"total"`
	Interviews int64 `db:"interviews"`
	Offers     int64 `db:"offers"`
	Favorites  int64 `db:"favorites"`
	Applied    int64 `db:"applied"`
	Rejected   int64 `db:"rejected"`
	Accepted   int64 `db:"accepted"`
}

func (r *statsRow) toDomain() *domain.Stats {
	return &domain.Stats{
		TotalApplications: int(r.Total),
		ActiveInterviews:  int(r.Interviews),
		OffersReceived:    int(r.Offers),
		Favorites:         int(r.Favorites),
		AppliedCount:      int(r.Applied),
		RejectedCount:     int(r.Rejected),
		AcceptedCount:     int(r.Accepted),
	}
}

// jsonArg passes metadata as text so both jsonb and TEXT columns accept it
func jsonArg(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

// dateOnlyArg follows an optional event date patch; nil keeps the stored flag
func dateOnlyArg(w *domain.WallTime) any {
	if w == nil {
		return nil
	}
	return w.DateOnly()
}
