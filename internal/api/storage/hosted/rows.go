package hosted

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

type jobRow struct {
	ID               int64       `gorm:"primaryKey"`
	UserID           string      `gorm:"not null;index"`
	Company          string      `gorm:"not null"`
	Position         string      `gorm:"not null"`
	JobURL           string      `gorm:"column:job_url;not null;default:''"`
	ApplicationDate  domain.Date `gorm:"type:date;not null;index:idx_hosted_jobs_application_date,sort:desc"`
	Status           string      `gorm:"not null;default:'applied'"`
	Location         string      `gorm:"not null;default:''"`
	Notes            string      `gorm:"not null;default:''"`
	Latitude         *float64
	Longitude        *float64
	FormattedAddress string `gorm:"not null;default:''"`
	PlaceID          string `gorm:"not null;default:''"`
	IsFavorite       bool   `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Events []jobEventRow `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

func (jobRow) TableName() string { return "jobs" }

type jobEventRow struct {
	ID              int64           `gorm:"primaryKey"`
	UserID          string          `gorm:"not null;index"`
	JobID           int64           `gorm:"not null;index"`
	EventType       string          `gorm:"not null"`
	EventDate       domain.WallTime `gorm:"type:timestamp;not null;index:idx_hosted_job_events_event_date,sort:desc"`
	EventDateOnly   bool            `gorm:"not null;default:false"`
	Title           string          `gorm:"not null"`
	Description     string          `gorm:"not null;default:''"`
	InterviewRound  *int
	InterviewType   string `gorm:"not null;default:''"`
	InterviewLink   string `gorm:"not null;default:''"`
	InterviewResult string `gorm:"not null;default:''"`
	Notes           string `gorm:"not null;default:''"`
	Metadata        datatypes.JSON
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (jobEventRow) TableName() string { return "job_events" }

func toJobRow(ownerID string, in domain.NewJob) jobRow {
	status := in.Status
	if status == "" {
		status = domain.StatusApplied
	}
	return jobRow{
		UserID:           ownerID,
		Company:          in.Company,
		Position:         in.Position,
		JobURL:           in.JobURL,
		ApplicationDate:  in.ApplicationDate,
		Status:           string(status),
		Location:         in.Location,
		Notes:            in.Notes,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		FormattedAddress: in.FormattedAddress,
		PlaceID:          in.PlaceID,
		IsFavorite:       in.IsFavorite,
	}
}

func fromJobRow(r *jobRow) domain.Job {
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

func toEventRow(ownerID string, in domain.NewJobEvent) jobEventRow {
	return jobEventRow{
		UserID:          ownerID,
		JobID:           in.JobID,
		EventType:       string(in.EventType),
		EventDate:       in.EventDate,
		EventDateOnly:   in.EventDate.DateOnly(),
		Title:           in.Title,
		Description:     in.Description,
		InterviewRound:  in.InterviewRound,
		InterviewType:   string(in.InterviewType),
		InterviewLink:   in.InterviewLink,
		InterviewResult: string(in.InterviewResult),
		Notes:           in.Notes,
		Metadata:        toJSON(in.Metadata),
	}
}

func fromEventRow(r *jobEventRow) domain.JobEvent {
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

// jobUpdates lists the columns a patch changes, keyed by column name
func jobUpdates(p domain.JobPatch, now time.Time) map[string]any {
	u := map[string]any{"updated_at": now}
	if p.Company != nil {
		u["company"] = *p.Company
	}
	if p.Position != nil {
		u["position"] = *p.Position
	}
	if p.JobURL != nil {
		u["job_url"] = *p.JobURL
	}
	if p.ApplicationDate != nil {
		u["application_date"] = *p.ApplicationDate
	}
	if p.Status != nil {
		u["status"] = string(*p.Status)
	}
	if p.Location != nil {
		u["location"] = *p.Location
	}
	if p.Notes != nil {
		u["notes"] = *p.Notes
	}
	if p.Latitude != nil {
		u["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		u["longitude"] = *p.Longitude
	}
	if p.FormattedAddress != nil {
		u["formatted_address"] = *p.FormattedAddress
	}
	if p.PlaceID != nil {
		u["place_id"] = *p.PlaceID
	}
	if p.IsFavorite != nil {
		u["is_favorite"] = *p.IsFavorite
	}
	return u
}

func eventUpdates(p domain.JobEventPatch, now time.Time) map[string]any {
	u := map[string]any{"updated_at": now}
	if p.EventType != nil {
		u["event_type"] = string(*p.EventType)
	}
	if p.EventDate != nil {
		u["event_date"] = *p.EventDate
		u["event_date_only"] = p.EventDate.DateOnly()
	}
	if p.Title != nil {
		u["title"] = *p.Title
	}
	if p.Description != nil {
		u["description"] = *p.Description
	}
	if p.InterviewRound != nil {
		u["interview_round"] = *p.InterviewRound
	}
	if p.InterviewType != nil {
		u["interview_type"] = string(*p.InterviewType)
	}
	if p.InterviewLink != nil {
		u["interview_link"] = *p.InterviewLink
	}
	if p.InterviewResult != nil {
		u["interview_result"] = string(*p.InterviewResult)
	}
	if p.Notes != nil {
		u["notes"] = *p.Notes
	}
	if p.Metadata != nil {
		u["metadata"] = toJSON(p.Metadata)
	}
	return u
}

func toJSON(m json.RawMessage) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	return datatypes.JSON(m)
}

type statsRow struct {
	Total      int64
	Interviews int64
	Offers     int64
	Favorites  int64
	Applied    int64
	Rejected   int64
	Accepted   int64
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
