package tcp

import (
	"encoding/json"
	"time"

	"github.com/example/homecare/backend/internal/service"
)

// Operation names form a fixed, closed catalog. The dispatch table is built
// from these at startup and never changes while the server runs.
const (
	OpCreateInspectionReport = "STAFF_CREATE_INSPECTION_REPORT"
	OpUpdateInspectionReport = "UPDATE_INSPECTION_REPORT"
	OpGetInspectionDetail    = "STAFF_GET_INSPECTION_DETAIL"
	OpCreateWorkLog          = "STAFF_CREATE_WORK_LOG"
	OpCheckOut               = "STAFF_CHECK_OUT"
	OpGetBookings            = "STAFF_GET_BOOKINGS"
	OpGetReviews             = "STAFF_GET_REVIEWS"
	OpGetPerformance         = "STAFF_GET_PERFORMANCE"
)

// Request is the wire request envelope.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SuccessResponse is the fixed envelope for every successful request.
type SuccessResponse struct {
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Timestamp  string `json:"timestamp"`
}

// ErrorMessage carries the human-readable message and the path of the
// offending field.
type ErrorMessage struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// ErrorResponse is the fixed envelope for every failed request.
type ErrorResponse struct {
	StatusCode int            `json:"statusCode"`
	Error      string         `json:"error"`
	Message    ErrorMessage   `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// NewSuccessResponse wraps a handler result in the success envelope.
func NewSuccessResponse(message string, data any) SuccessResponse {
	return SuccessResponse{
		Success:    true,
		Code:       "SUCCESS",
		Message:    message,
		StatusCode: 200,
		Data:       data,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// NewErrorResponse translates a typed service error into the error envelope.
func NewErrorResponse(err *service.Error) ErrorResponse {
	path := err.Path
	if path == nil {
		path = []string{}
	}
	return ErrorResponse{
		StatusCode: err.StatusCode,
		Error:      err.Code,
		Message:    ErrorMessage{Message: err.Message, Path: path},
		Details:    err.Details,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
