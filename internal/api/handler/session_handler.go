package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/dto"
	"github.com/cuongbtq/job-tracker/internal/api/session"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// SessionHandler exposes provider selection
type SessionHandler struct {
	base
}

func NewSessionHandler(deps *Dependencies) *SessionHandler {
	return &SessionHandler{base: base{logger: deps.Logger, sessions: deps.Sessions}}
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	view, err := h.sessions.State(c.Request.Context(), callerOf(c))
	h.respond(c, "get session", view, err)
}

// SelectProvider handles PUT /api/v1/session/provider
func (h *SessionHandler) SelectProvider(c *gin.Context) {
	var req dto.SelectProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "provider is required")
		return
	}
	name, err := storage.ParseName(req.Provider)
	if err != nil {
		respondError(c, h.logger, "select provider", err)
		return
	}
	view, err := h.sessions.Select(c.Request.Context(), callerOf(c), name)
	h.respond(c, "select provider", view, err)
}

// SignIn handles POST /api/v1/session/sign-in
// The request must carry the access token issued by the identity provider
func (h *SessionHandler) SignIn(c *gin.Context) {
	view, err := h.sessions.SignIn(c.Request.Context(), callerOf(c))
	h.respond(c, "sign in", view, err)
}

// SignOut handles POST /api/v1/session/sign-out
func (h *SessionHandler) SignOut(c *gin.Context) {
	view, err := h.sessions.SignOut(c.Request.Context(), callerOf(c))
	h.respond(c, "sign out", view, err)
}

func (h *SessionHandler) respond(c *gin.Context, op string, view session.View, err error) {
	if err != nil {
		respondError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSessionView(view))
}
