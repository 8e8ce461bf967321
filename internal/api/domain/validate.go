package domain

import (
	"strings"
	"time"
)

// Prepare trims input, applies creation defaults and validates the job.
// Defaults: status applied, application date today in loc.
func (n *NewJob) Prepare(loc *time.Location) error {
	n.Company = strings.TrimSpace(n.Company)
	n.Position = strings.TrimSpace(n.Position)
	n.JobURL = strings.TrimSpace(n.JobURL)

	if n.Status == "" {
		n.Status = StatusApplied
	}
	if n.ApplicationDate.IsZero() {
		n.ApplicationDate = Today(loc)
	}

	verr := &ValidationError{}
	if n.Company == "" {
		verr.add("company is required")
	}
	if n.Position == "" {
		verr.add("position is required")
	}
	if !n.Status.Valid() {
		verr.add("status must be one of applied, interview, rejected, offer, accepted")
	}
	validateCoordinates(verr, n.Latitude, n.Longitude)
	return verr.orNil()
}

// Validate checks the fields present in the patch
func (p *JobPatch) Validate() error {
	verr := &ValidationError{}
	if p.Company != nil {
		*p.Company = strings.TrimSpace(*p.Company)
		if *p.Company == "" {
			verr.add("company cannot be empty")
		}
	}
	if p.Position != nil {
		*p.Position = strings.TrimSpace(*p.Position)
		if *p.Position == "" {
			verr.add("position cannot be empty")
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		verr.add("status must be one of applied, interview, rejected, offer, accepted")
	}
	if p.ApplicationDate != nil && p.ApplicationDate.IsZero() {
		verr.add("applicationDate cannot be empty")
	}
	validateCoordinates(verr, p.Latitude, p.Longitude)
	return verr.orNil()
}

// Empty reports whether the patch changes nothing
func (p *JobPatch) Empty() bool {
	return p.Company == nil && p.Position == nil && p.JobURL == nil && p.ApplicationDate == nil &&
		p.Status == nil && p.Location == nil && p.Notes == nil && p.Latitude == nil &&
		p.Longitude == nil && p.FormattedAddress == nil && p.PlaceID == nil && p.IsFavorite == nil
}

// Prepare applies creation defaults and validates the event.
// Defaults: title from the event type, event date today in loc.
func (n *NewJobEvent) Prepare(loc *time.Location) error {
	n.Title = strings.TrimSpace(n.Title)

	verr := &ValidationError{}
	if n.JobID <= 0 {
		verr.add("jobId must be a positive integer")
	}
	if !n.EventType.Valid() {
		verr.add("eventType is invalid")
	}
	if n.Title == "" && n.EventType.Valid() {
		n.Title = n.EventType.Label()
	}
	if n.EventDate.IsZero() {
		n.EventDate = WallTimeFromDate(Today(loc))
	}
	validateInterviewFields(verr, n.InterviewRound, &n.InterviewType, &n.InterviewResult)
	return verr.orNil()
}

// Validate checks the fields present in the patch
func (p *JobEventPatch) Validate() error {
	verr := &ValidationError{}
	if p.EventType != nil && !p.EventType.Valid() {
		verr.add("eventType is invalid")
	}
	if p.Title != nil {
		*p.Title = strings.TrimSpace(*p.Title)
		if *p.Title == "" {
			verr.add("title cannot be empty")
		}
	}
	if p.EventDate != nil && p.EventDate.IsZero() {
		verr.add("eventDate cannot be empty")
	}
	validateInterviewFields(verr, p.InterviewRound, p.InterviewType, p.InterviewResult)
	return verr.orNil()
}

func validateInterviewFields(verr *ValidationError, round *int, typ *InterviewType, result *InterviewResult) {
	if round != nil && *round <= 0 {
		verr.add("interviewRound must be a positive integer")
	}
	if typ != nil && *typ != "" && !typ.Valid() {
		verr.add("interviewType must be one of phone, video, onsite, technical, hr, final, oa, vo")
	}
	if result != nil && *result != "" && !result.Valid() {
		verr.add("interviewResult must be one of pending, passed, failed, waiting, cancelled")
	}
}

func validateCoordinates(verr *ValidationError, lat, lng *float64) {
	if lat != nil && (*lat < -90 || *lat > 90) {
		verr.add("latitude must be between -90 and 90")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		verr.add("longitude must be between -180 and 180")
	}
}
