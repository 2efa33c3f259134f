// Package api exposes quotes, the toggle and admin operations over HTTP.
package api

import (
	"errors"
	"net/http"

	"sats_display/internal/domain"

	"github.com/gin-gonic/gin"
)

// APIResponse represents a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error information in API response
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, errType, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &ErrorInfo{Type: errType, Message: message},
	})
}

// ErrorResponseWithError maps domain errors to status codes.
// Unknown errors are reported as internal without details.
func ErrorResponseWithError(c *gin.Context, err error) {
	var cfgErr *domain.ConfigError
	switch {
	case errors.Is(err, domain.ErrRateUnavailable):
		ErrorResponse(c, http.StatusServiceUnavailable, "unavailable", domain.NotAvailable)
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   &ErrorInfo{Type: "validation_error", Message: cfgErr.Err.Error(), Field: cfgErr.Field},
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		ErrorResponse(c, http.StatusBadRequest, "validation_error", err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, "internal_error", "Internal server error occurred")
	}
}
