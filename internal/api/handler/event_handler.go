package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/dto"
	"github.com/cuongbtq/job-tracker/internal/api/events"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// ListJobEvents handles GET /api/v1/job-events?jobId=
// Events of one job, or of all jobs without jobId, newest first
func (h *JobHandler) ListJobEvents(c *gin.Context) {
	var req dto.ListJobEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "jobId must be a positive integer")
		return
	}
	if req.JobID != nil && *req.JobID <= 0 {
		badRequest(c, "jobId must be a positive integer")
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	list, err := p.FetchJobEvents(c.Request.Context(), req.JobID)
	if err != nil {
		respondError(c, h.logger, "list job events", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromJobEvents(list))
}

// CreateJobEvent handles POST /api/v1/job-events
// Stores the event; the job status follows the event type
func (h *JobHandler) CreateJobEvent(c *gin.Context) {
	var req dto.CreateJobEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	in := req.ToDomain()
	if err := in.Prepare(h.location); err != nil {
		respondError(c, h.logger, "create job event", err)
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	evt, err := p.CreateJobEvent(ctx, in)
	if err != nil {
		respondError(c, h.logger, "create job event", err)
		return
	}
	h.invalidateStats(c, p)
	h.announce(ctx, p, callerOf(c).OwnerID, evt)

	c.JSON(http.StatusCreated, dto.FromJobEvent(evt))
}

// announce publishes the stored event; delivery failures only get logged
func (h *JobHandler) announce(ctx context.Context, p storage.Provider, ownerID string, evt *domain.JobEvent) {
	msg := events.JobEventCreated{
		Provider:  p.Name(),
		JobID:     evt.JobID,
		EventID:   evt.ID,
		EventType: evt.EventType,
	}
	if p.Name() == storage.NameHosted {
		msg.OwnerID = ownerID
	}
	if err := h.publisher.Publish(ctx, events.KeyJobEventCreated, msg); err != nil {
		h.logger.Warn("Failed to publish job event",
			slog.Int64("event_id", evt.ID),
			slog.Any("error", err),
		)
	}
}

// UpdateJobEvent handles PUT /api/v1/job-events/:id
// Edits do not change the job status; use recompute-status to reconcile
func (h *JobHandler) UpdateJobEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateJobEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	patch := req.ToDomain()
	if err := patch.Validate(); err != nil {
		respondError(c, h.logger, "update job event", err)
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	if err := p.UpdateJobEvent(c.Request.Context(), id, patch); err != nil {
		respondError(c, h.logger, "update job event", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job event updated"})
}

// DeleteJobEvent handles DELETE /api/v1/job-events/:id
func (h *JobHandler) DeleteJobEvent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.provider(c)
	if !ok {
		return
	}
	if err := p.DeleteJobEvent(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete job event", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job event deleted"})
}

// BulkDeleteJobEvents handles DELETE /api/v1/job-events/bulk-delete
// Removes the job's events of the listed types and nothing else
func (h *JobHandler) BulkDeleteJobEvents(c *gin.Context) {
	var req dto.BulkDeleteJobEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "jobId and a non-empty eventTypes list are required")
		return
	}
	if req.JobID <= 0 {
		badRequest(c, "jobId must be a positive integer")
		return
	}
	for _, t := range req.EventTypes {
		if !t.Valid() {
			badRequest(c, "unknown event type "+string(t))
			return
		}
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	deleted, err := p.BulkDeleteJobEvents(c.Request.Context(), req.JobID, req.EventTypes)
	if err != nil {
		respondError(c, h.logger, "bulk delete job events", err)
		return
	}
	c.JSON(http.StatusOK, dto.BulkDeleteJobEventsResponse{Deleted: deleted})
}
