package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/dto"
)

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional search, status and favorite filters, newest application first
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Debug("Invalid query parameters", slog.String("error", err.Error()))
		badRequest(c, "Invalid query parameters")
		return
	}
	filter, err := req.ToDomain()
	if err != nil {
		respondError(c, h.logger, "list jobs", err)
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	list, err := p.FetchJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "list jobs", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromJobList(list))
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.provider(c)
	if !ok {
		return
	}
	job, err := p.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get job", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromJob(job))
}

// CreateJob handles POST /api/v1/jobs
// Stores the job together with its applied event
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	in := req.ToDomain()
	if err := in.Prepare(h.location); err != nil {
		respondError(c, h.logger, "create job", err)
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	job, err := p.CreateJob(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "create job", err)
		return
	}
	h.invalidateStats(c, p)

	h.logger.Info("Job created",
		slog.Int64("job_id", job.ID),
		slog.String("provider", string(p.Name())),
	)
	c.JSON(http.StatusCreated, dto.FromJob(job))
}

// UpdateJob handles PUT /api/v1/jobs/:id
// Absent fields keep their stored values
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}
	patch := req.ToDomain()
	if err := patch.Validate(); err != nil {
		respondError(c, h.logger, "update job", err)
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := p.UpdateJob(ctx, id, patch); err != nil {
		respondError(c, h.logger, "update job", err)
		return
	}
	h.invalidateStats(c, p)

	job, err := p.GetJob(ctx, id)
	if err != nil {
		respondError(c, h.logger, "update job", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromJob(job))
}

// DeleteJob handles DELETE /api/v1/jobs/:id
// Removes the job and all of its events
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.provider(c)
	if !ok {
		return
	}
	if err := p.DeleteJob(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete job", err)
		return
	}
	h.invalidateStats(c, p)
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

// ToggleFavorite handles PUT /api/v1/jobs/:id/favorite
// The body holds the desired value; the provider flips the stored flag from its opposite
func (h *JobHandler) ToggleFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ToggleFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "isFavorite is required")
		return
	}

	p, ok := h.provider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := p.ToggleFavorite(ctx, id, !*req.IsFavorite); err != nil {
		respondError(c, h.logger, "toggle favorite", err)
		return
	}
	h.invalidateStats(c, p)

	job, err := p.GetJob(ctx, id)
	if err != nil {
		respondError(c, h.logger, "toggle favorite", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromJob(job))
}

// RecomputeStatus handles POST /api/v1/jobs/:id/recompute-status
// Rebuilds the derived status from the job's events
func (h *JobHandler) RecomputeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.provider(c)
	if !ok {
		return
	}
	status, err := p.RecomputeStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "recompute status", err)
		return
	}
	h.invalidateStats(c, p)
	c.JSON(http.StatusOK, dto.RecomputeStatusResponse{JobID: id, Status: status})
}

// GetStats handles GET /api/v1/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	p, ok := h.provider(c)
	if !ok {
		return
	}
	owner := callerOf(c).OwnerID
	if h.stats != nil {
		if stats, ok := h.stats.Get(p.Name(), owner); ok {
			c.JSON(http.StatusOK, dto.FromStats(&stats))
			return
		}
	}

	stats, err := p.FetchStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "fetch stats", err)
		return
	}
	if h.stats != nil {
		h.stats.Set(p.Name(), owner, *stats)
	}
	c.JSON(http.StatusOK, dto.FromStats(stats))
}

// Probe handles GET /api/v1/probe
// Reports whether the active provider is reachable so the client can offer demo data instead
func (h *JobHandler) Probe(c *gin.Context) {
	p, ok := h.provider(c)
	if !ok {
		return
	}
	if err := p.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("Storage provider probe failed",
			slog.String("provider", string(p.Name())),
			slog.Any("error", err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "storage provider unavailable",
			"provider": p.Name(),
			"fallback": "mock",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": p.Name(), "status": "ok"})
}
