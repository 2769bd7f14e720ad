package service

import (
	"errors"
	"fmt"
)

// Stable machine codes carried on the wire. Clients match on these, so they
// never change once released.
const (
	CodeInspectionReportExists         = "Error.InspectionReportExists"
	CodeNotFound                       = "Error.NotFound"
	CodeReportUpdateTooLate            = "Error.ReportUpdateTooLate"
	CodeNoValidUpdateData              = "Error.NoValidUpdateData"
	CodeBookingNotFound                = "Error.BookingNotFound"
	CodeInvalidBookingStatusForCheckIn = "Error.InvalidBookingStatusForCheckIn"
	CodeAlreadyCheckedIn               = "Error.AlreadyCheckedIn"
	CodeDateMismatchPreferredDate      = "Error.DateMismatchPreferredDate"
	CodeAlreadyCheckedOut              = "Error.AlreadyCheckedOut"
	CodeMissingCheckIn                 = "Error.MissingCheckIn"
	CodeCheckOutTooLate                = "Error.CheckOutTooLate"
	CodeUnknownRequestType             = "Error.UnknownRequestType"
	CodeInvalidPayload                 = "Error.InvalidPayload"
	CodePayloadTooLarge                = "Error.PayloadTooLarge"
	CodeInvalidJSON                    = "Error.InvalidJSON"
	CodeInternal                       = "Error.InternalServerError"
)

// Error is a business-rule or validation failure carrying everything the wire
// envelope needs: a stable machine code, a status code, a human message, the
// path of the offending field and optional contextual details.
type Error struct {
	Code       string
	StatusCode int
	Message    string
	Path       []string
	Details    map[string]any
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithPath attaches the offending field path and returns the error.
func (e *Error) WithPath(path ...string) *Error {
	e.Path = path
	return e
}

// WithDetails attaches contextual details and returns the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// NewError builds a business-rule violation with the given code and message.
func NewError(code string, statusCode int, message string) *Error {
	return &Error{Code: code, StatusCode: statusCode, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, StatusCode: 404, Message: resource + " not found"}
}

// Validation reports a structurally invalid input field.
func Validation(message string, path ...string) *Error {
	return &Error{Code: CodeInvalidPayload, StatusCode: 422, Message: message, Path: path}
}

// Internal wraps an unexpected error. The original message travels in details,
// never as a raw stack on the wire.
func Internal(err error) *Error {
	return &Error{
		Code:       CodeInternal,
		StatusCode: 500,
		Message:    "internal server error",
		Details:    map[string]any{"name": fmt.Sprintf("%T", err), "message": err.Error()},
		Err:        err,
	}
}

// AsError extracts a typed *Error from an error chain. Anything else is
// promoted to an internal error so handlers always have an envelope to send.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
