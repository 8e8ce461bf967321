package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/auth"
	"github.com/cuongbtq/job-tracker/internal/api/events"
	"github.com/cuongbtq/job-tracker/internal/api/parser"
	"github.com/cuongbtq/job-tracker/internal/api/session"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// ClientHeader identifies the browser whose provider preference is used
const ClientHeader = "X-Client-ID"

const defaultClient = "default"

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Sessions  *session.Manager
	Publisher events.Publisher
	Parser    parser.Parser
	Stats     *StatsCache
	Location  *time.Location // calendar used for date defaults
}

// base resolves the provider serving a request
type base struct {
	logger   *slog.Logger
	sessions *session.Manager
}

func callerOf(c *gin.Context) session.Caller {
	client := c.GetHeader(ClientHeader)
	if client == "" {
		client = defaultClient
	}
	return session.Caller{Client: client, OwnerID: auth.OwnerID(c)}
}

// provider returns the active provider, or answers the request with the error
func (b *base) provider(c *gin.Context) (storage.Provider, bool) {
	p, err := b.sessions.Resolve(c.Request.Context(), callerOf(c))
	if err != nil {
		respondError(c, b.logger, "resolve provider", err)
		return nil, false
	}
	return p, true
}

// JobHandler handles job, event and stats requests
type JobHandler struct {
	base
	publisher events.Publisher
	stats     *StatsCache
	location  *time.Location
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &JobHandler{
		base:      base{logger: deps.Logger, sessions: deps.Sessions},
		publisher: publisher,
		stats:     deps.Stats,
		location:  loc,
	}
}

// invalidateStats drops the cached counts of the provider view that changed
func (h *JobHandler) invalidateStats(c *gin.Context, p storage.Provider) {
	if h.stats != nil {
		h.stats.Invalidate(p.Name(), auth.OwnerID(c))
	}
}
