package domain

import (
	"math"
	"strings"
)

const (
	// DefaultPageSize is used when the caller does not pass a limit
	DefaultPageSize = 10
	// MaxPageSize caps the number of jobs returned per page
	MaxPageSize = 100
	// MaxPage keeps the row offset of any page within an int
	MaxPage = math.MaxInt / MaxPageSize
)

// JobFilter selects a page of jobs
type JobFilter struct {
	Page      int
	Limit     int
	Search    string
	Status    Status // empty means all statuses
	Favorites bool
}

// Normalize applies paging defaults and bounds
func (f JobFilter) Normalize() JobFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Offset is the number of filtered rows preceding the page. It saturates at
// math.MaxInt instead of overflowing.
func (f JobFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Matches reports whether the job passes the search, status and favorites filters
func (f JobFilter) Matches(job *Job) bool {
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	if f.Favorites && !job.IsFavorite {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(job.Company), needle) ||
			strings.Contains(strings.ToLower(job.Position), needle)
	}
	return true
}

// Pagination describes the page returned by a job listing
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// NewPagination computes page counts from the filtered total
func NewPagination(f JobFilter, total int) Pagination {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages}
}

// JobList is a page of jobs plus its pagination info
type JobList struct {
	Jobs       []Job
	Pagination Pagination
}

// Stats aggregates job counts for the dashboard
type Stats struct {
	TotalApplications int
	ActiveInterviews  int
	OffersReceived    int
	Favorites         int
	AppliedCount      int
	RejectedCount     int
	AcceptedCount     int
}

// Count adds a job to the aggregate
func (s *Stats) Count(job *Job) {
	s.TotalApplications++
	if job.IsFavorite {
		s.Favorites++
	}
	switch job.Status {
	case StatusApplied:
		s.AppliedCount++
	case StatusInterview:
		s.ActiveInterviews++
	case StatusOffer:
		s.OffersReceived++
	case StatusRejected:
		s.RejectedCount++
	case StatusAccepted:
		s.AcceptedCount++
	}
}
