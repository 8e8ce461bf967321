package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrProviderLocked), errors.Is(err, domain.ErrProviderNotSelectable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message}. Unclassified errors are logged and
// answered with a generic message so backend details never reach the client.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	status := statusOf(err)
	msg := err.Error()

	switch {
	case status == http.StatusServiceUnavailable:
		logger.Error("Storage provider unavailable", slog.String("op", op), slog.Any("error", err))
		msg = domain.ErrProviderUnavailable.Error()
	case status == http.StatusInternalServerError && !errors.Is(err, domain.ErrNotConfigured):
		logger.Error("Request failed", slog.String("op", op), slog.Any("error", err))
		msg = "internal error"
	case status == http.StatusInternalServerError:
		logger.Error("Feature not configured", slog.String("op", op), slog.Any("error", err))
	default:
		logger.Debug("Request rejected", slog.String("op", op), slog.Int("status", status), slog.Any("error", err))
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest answers 400 for input that could not be bound
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondBindError answers 400 for a body that could not be decoded, keeping
// the message of domain validation failures raised during decoding
func respondBindError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Debug("Invalid request body", slog.String("error", err.Error()))
	if errors.Is(err, domain.ErrInvalidInput) {
		badRequest(c, err.Error())
		return
	}
	badRequest(c, "Invalid request body")
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
