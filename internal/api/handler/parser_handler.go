package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/dto"
	"github.com/cuongbtq/job-tracker/internal/api/parser"
)

// ParserHandler turns pasted job postings into job fields
type ParserHandler struct {
	base
	parser parser.Parser
}

func NewParserHandler(deps *Dependencies) *ParserHandler {
	p := deps.Parser
	if p == nil {
		p = parser.Unconfigured{}
	}
	return &ParserHandler{base: base{logger: deps.Logger, sessions: deps.Sessions}, parser: p}
}

// ParseJob handles POST /api/v1/jobs/parse
func (h *ParserHandler) ParseJob(c *gin.Context) {
	var req dto.ParseJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}
	posting, err := h.parser.Parse(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, h.logger, "parse job posting", err)
		return
	}
	c.JSON(http.StatusOK, posting)
}
