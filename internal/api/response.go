package api

import (
	"crypto/rand"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an error response.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	reqLog := s.logger.WithContext(c.Request().Context())
	log := reqLog.Debug
	if code >= http.StatusInternalServerError {
		log = reqLog.Error
	}
	log("API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Error(err),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method))

	return c.JSON(code, resp)
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// OperationResponse is returned by every mutating endpoint. Provider errors
// are informational: the state has been recorded either way.
type OperationResponse struct {
	State          controller.State `json:"state"`
	ProviderErrors []string         `json:"provider_errors,omitempty"`
}

func (s *Server) respondState(c echo.Context, providerErr error) error {
	resp := OperationResponse{State: s.controller.Snapshot()}
	if providerErr != nil {
		resp.ProviderErrors = splitJoined(providerErr)
	}
	return c.JSON(http.StatusOK, resp)
}

// splitJoined flattens an errors.Join tree into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, splitJoined(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
