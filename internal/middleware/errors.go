package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/userforge/user-service/internal/common"
)

// ErrorResponse is the structured body returned for every failed request.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// ValidationErrorResponse additionally carries a field-to-reason mapping.
type ValidationErrorResponse struct {
	ErrorResponse
	Errors map[string]string `json:"errors"`
}

func RespondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		ErrorResponse: ErrorResponse{
			Status:    http.StatusBadRequest,
			Message:   "Validation failed",
			Timestamp: time.Now().UTC(),
			Path:      c.Request.URL.Path,
		},
		Errors: fieldErrors,
	})
}

// RespondWithDomainError is the single translation point from domain failures
// to HTTP statuses. Anything unrecognised becomes a 500 with a generic
// message; internal detail never reaches the client.
func RespondWithDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
	default:
		RespondWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
