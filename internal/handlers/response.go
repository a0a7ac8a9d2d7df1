package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/schedule"
)

// Envelope wraps every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Success:    status < http.StatusBadRequest,
	})
}

func fail(c *gin.Context, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	c.JSON(status, ErrorEnvelope{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     details,
	})
}

// failErr maps a service error onto a status code. Internal failures are
// logged with detail and reported to the client generically.
func failErr(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		fail(c, status, "internal server error")
		return
	}
	fail(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schedule.ErrMissingField),
		errors.Is(err, schedule.ErrInvalidInterval),
		errors.Is(err, schedule.ErrUnknownTimezone),
		errors.Is(err, schedule.ErrUnknownParticipant):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrUsernameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
