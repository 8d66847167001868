package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondServiceError maps a service error category onto an HTTP status.
// Only unexpected failures are logged.
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUploadTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		a.logger.Warn(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		respondError(c, http.StatusServiceUnavailable, "request timed out")
	default:
		a.logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
