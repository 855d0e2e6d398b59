package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voxchat/backend/internal/errors"
	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the error body every handler returns
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response, logging
// server-side failures at error level and client mistakes at warn.
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}

	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Log.Error("request failed", fields...)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Log.Warn("request rejected", fields...)
	}

	c.JSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "user not authenticated"
	}
	RespondWithAPIError(c, errors.Unauthorized(message))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response naming the offending
// input field.
func RespondBadRequest(c *gin.Context, field, message string) {
	apiErr := errors.BadRequest(message)
	apiErr.Field = field
	RespondWithAPIError(c, apiErr)
}

// RespondForbidden sends a 403 Forbidden response
func RespondForbidden(c *gin.Context, message string) {
	if message == "" {
		message = "forbidden"
	}
	RespondWithAPIError(c, errors.Forbidden(message))
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	RespondWithAPIError(c, errors.InternalError(message))
}

// RespondConflict sends a 409 Conflict response
func RespondConflict(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.Conflict(resource))
}

// RespondValidationError sends a 422 Unprocessable Entity response
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
