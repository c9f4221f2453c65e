package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andreiashu/placeresolver"
	"github.com/andreiashu/placeresolver/weather"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeEmptyQuery      ErrorCode = "EMPTY_QUERY"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeInvalidUnits    ErrorCode = "INVALID_UNITS"
	ErrorCodeInvalidLimit    ErrorCode = "INVALID_LIMIT"
	ErrorCodeInvalidLocation ErrorCode = "INVALID_LOCATION"
	ErrorCodeNoReport        ErrorCode = "NO_REPORT"

	// Server Error Codes (5xx)
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeLookupFailed    ErrorCode = "LOOKUP_FAILED"
	ErrorCodeWeatherFailed   ErrorCode = "WEATHER_FAILED"
	ErrorCodeHistoryDisabled ErrorCode = "HISTORY_DISABLED"
	ErrorCodeNearbyDisabled  ErrorCode = "NEARBY_DISABLED"
)

// APIError represents a standardized API error response
type APIError struct {
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string) {
	resp := &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			resp.RequestID = s
		}
	}
	c.JSON(statusCode, resp)
}

// sendSearchError maps resolver and weather errors onto status codes.
func sendSearchError(c *gin.Context, err error) {
	var fetchErr *weather.FetchError
	switch {
	case errors.Is(err, placeresolver.ErrEmptyQuery):
		SendError(c, http.StatusBadRequest, ErrorCodeEmptyQuery, "query is empty")
	case errors.Is(err, placeresolver.ErrNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeNotFound, err.Error())
	case errors.As(err, &fetchErr):
		SendError(c, http.StatusBadGateway, ErrorCodeWeatherFailed, err.Error())
	default:
		SendError(c, http.StatusBadGateway, ErrorCodeLookupFailed, err.Error())
	}
}
