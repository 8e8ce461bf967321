package domain

import "sort"

// DeriveStatus maps an event to the job status it implies.
// The second return value is false when the event leaves the status unchanged.
func DeriveStatus(eventType EventType, result InterviewResult) (Status, bool) {
	switch eventType {
	case EventInterviewScheduled, EventInterview:
		return StatusInterview, true
	case EventRejected:
		return StatusRejected, true
	case EventOfferReceived:
		return StatusOffer, true
	case EventOfferAccepted:
		return StatusAccepted, true
	case EventInterviewResult:
		if result == ResultFailed {
			return StatusRejected, true
		}
	}
	return "", false
}

// StatusChange decides the status write for a freshly created event.
// A failed interview result only demotes the job when it is the most recently
// created interview_result of that job (latestResultID).
//
// "Latest" is creation order (highest id), never eventDate. Right after an insert
// the new event holds the highest id, so at creation time the guard never vetoes a
// change; it matters when RecomputeStatus replays older results. A result entered
// with an earlier eventDate than an existing one still decides the status.
func StatusChange(evt JobEvent, latestResultID int64) (Status, bool) {
	status, ok := DeriveStatus(evt.EventType, evt.InterviewResult)
	if !ok {
		return "", false
	}
	if evt.EventType == EventInterviewResult && evt.ID != latestResultID {
		return "", false
	}
	return status, true
}

// RecomputeStatus rebuilds the derived status from a job's full event stream.
// Events are replayed in creation order starting from applied.
func RecomputeStatus(events []JobEvent) Status {
	ordered := make([]JobEvent, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	latestResultID := LatestInterviewResultID(ordered)
	status := StatusApplied
	for _, evt := range ordered {
		if next, ok := StatusChange(evt, latestResultID); ok {
			status = next
		}
	}
	return status
}

// LatestInterviewResultID returns the id of the most recently created
// interview_result event, or 0 when there is none
func LatestInterviewResultID(events []JobEvent) int64 {
	var latest int64
	for _, evt := range events {
		if evt.EventType == EventInterviewResult && evt.ID > latest {
			latest = evt.ID
		}
	}
	return latest
}
