// Package httputil provides HTTP request and response helpers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/metagrid/directory/internal/errors"
)

// Envelope is the uniform response body: status is "success" or "failure",
// data carries the payload on success, error the message on failure.
type Envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success writes a success envelope with the given payload.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Envelope{Status: "success", Data: data})
}

// Failure writes a failure envelope with the given message.
func Failure(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Envelope{Status: "failure", Error: message})
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a
// failure envelope. Unknown errors become opaque 500s.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var message string

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "the requested resource was not found"

	// Expired credentials answer like missing ones so a dead token is
	// indistinguishable from one that never existed.
	case apperrors.Is(err, apperrors.ErrExpired):
		statusCode = http.StatusNotFound
		message = "the requested resource was not found"

	case apperrors.Is(err, apperrors.ErrConflict):
		statusCode = http.StatusConflict
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "authentication is required"

	case apperrors.Is(err, apperrors.ErrForbidden):
		statusCode = http.StatusForbidden
		message = "you don't have permission to access this resource"

	default:
		statusCode = http.StatusInternalServerError
		message = "an internal error occurred"
	}

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.Any("error", err),
		)
	}

	Failure(c, statusCode, message)
}

// HandleBadRequestGin writes a 400 failure envelope for malformed JSON or
// parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}
	Failure(c, http.StatusBadRequest, err.Error())
}
