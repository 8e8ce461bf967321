package dto

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

type CreateJobRequest struct {
	Company          string        `json:"company"`
	Position         string        `json:"position"`
	JobURL           string        `json:"jobUrl"`
	ApplicationDate  domain.Date   `json:"applicationDate"`
	Status           domain.Status `json:"status"`
	Location         string        `json:"location"`
	Notes            string        `json:"notes"`
	Latitude         *float64      `json:"latitude"`
	Longitude        *float64      `json:"longitude"`
	FormattedAddress string        `json:"formattedAddress"`
	PlaceID          string        `json:"placeId"`
	IsFavorite       bool          `json:"isFavorite"`
}

func (r CreateJobRequest) ToDomain() domain.NewJob {
	return domain.NewJob{
		Company:          r.Company,
		Position:         r.Position,
		JobURL:           r.JobURL,
		ApplicationDate:  r.ApplicationDate,
		Status:           r.Status,
		Location:         r.Location,
		Notes:            r.Notes,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		IsFavorite:       r.IsFavorite,
	}
}

// UpdateJobRequest carries a partial update; absent fields keep their value
type UpdateJobRequest struct {
	Company          *string        `json:"company"`
	Position         *string        `json:"position"`
	JobURL           *string        `json:"jobUrl"`
	ApplicationDate  *domain.Date   `json:"applicationDate"`
	Status           *domain.Status `json:"status"`
	Location         *string        `json:"location"`
	Notes            *string        `json:"notes"`
	Latitude         *float64       `json:"latitude"`
	Longitude        *float64       `json:"longitude"`
	FormattedAddress *string        `json:"formattedAddress"`
	PlaceID          *string        `json:"placeId"`
	IsFavorite       *bool          `json:"isFavorite"`
}

func (r UpdateJobRequest) ToDomain() domain.JobPatch {
	return domain.JobPatch{
		Company:          r.Company,
		Position:         r.Position,
		JobURL:           r.JobURL,
		ApplicationDate:  r.ApplicationDate,
		Status:           r.Status,
		Location:         r.Location,
		Notes:            r.Notes,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		IsFavorite:       r.IsFavorite,
	}
}

// ToggleFavoriteRequest holds the desired favorite value
type ToggleFavoriteRequest struct {
	IsFavorite *bool `json:"isFavorite" binding:"required"`
}

type ListJobsRequest struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	Search    string `form:"search"`
	Status    string `form:"status"`
	Favorites bool   `form:"favorites"`
}

func (r ListJobsRequest) ToDomain() (domain.JobFilter, error) {
	f := domain.JobFilter{
		Page:      r.Page,
		Limit:     r.Limit,
		Search:    r.Search,
		Favorites: r.Favorites,
	}
	// "all" and an empty value both mean no status filter
	if raw := strings.TrimSpace(r.Status); raw != "" && !strings.EqualFold(raw, "all") {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.JobFilter{}, err
		}
		f.Status = status
	}
	return f.Normalize(), nil
}

type JobDTO struct {
	ID               int64         `json:"id"`
	Company          string        `json:"company"`
	Position         string        `json:"position"`
	JobURL           string        `json:"jobUrl"`
	ApplicationDate  domain.Date   `json:"applicationDate"`
	Status           domain.Status `json:"status"`
	Location         string        `json:"location"`
	Notes            string        `json:"notes"`
	Latitude         *float64      `json:"latitude"`
	Longitude        *float64      `json:"longitude"`
	FormattedAddress string        `json:"formattedAddress"`
	PlaceID          string        `json:"placeId"`
	IsFavorite       bool          `json:"isFavorite"`
	CreatedAt        string        `json:"createdAt"`
	UpdatedAt        string        `json:"updatedAt"`
}

func FromJob(j *domain.Job) JobDTO {
	return JobDTO{
		ID:               j.ID,
		Company:          j.Company,
		Position:         j.Position,
		JobURL:           j.JobURL,
		ApplicationDate:  j.ApplicationDate,
		Status:           j.Status,
		Location:         j.Location,
		Notes:            j.Notes,
		Latitude:         j.Latitude,
		Longitude:        j.Longitude,
		FormattedAddress: j.FormattedAddress,
		PlaceID:          j.PlaceID,
		IsFavorite:       j.IsFavorite,
		CreatedAt:        formatTimestamp(j.CreatedAt),
		UpdatedAt:        formatTimestamp(j.UpdatedAt),
	}
}

type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO      `json:"jobs"`
	Pagination PaginationDTO `json:"pagination"`
}

func FromJobList(l *domain.JobList) ListJobsResponse {
	jobs := make([]JobDTO, len(l.Jobs))
	for i := range l.Jobs {
		jobs[i] = FromJob(&l.Jobs[i])
	}
	return ListJobsResponse{
		Jobs: jobs,
		Pagination: PaginationDTO{
			Page:       l.Pagination.Page,
			Limit:      l.Pagination.Limit,
			Total:      l.Pagination.Total,
			TotalPages: l.Pagination.TotalPages,
		},
	}
}

type StatsDTO struct {
	TotalApplications int `json:"totalApplications"`
	ActiveInterviews  int `json:"activeInterviews"`
	OffersReceived    int `json:"offersReceived"`
	Favorites         int `json:"favorites"`
	AppliedCount      int `json:"appliedCount"`
	RejectedCount     int `json:"rejectedCount"`
	AcceptedCount     int `json:"acceptedCount"`
}

func FromStats(s *domain.Stats) StatsDTO {
	return StatsDTO{
		TotalApplications: s.TotalApplications,
		ActiveInterviews:  s.ActiveInterviews,
		OffersReceived:    s.OffersReceived,
		Favorites:         s.Favorites,
		AppliedCount:      s.AppliedCount,
		RejectedCount:     s.RejectedCount,
		AcceptedCount:     s.AcceptedCount,
	}
}

type ParseJobRequest struct {
	Text string `json:"text" binding:"required"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// normalizeMetadata treats an explicit JSON null as no metadata
func normalizeMetadata(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null")) {
		return nil
	}
	return m
}
