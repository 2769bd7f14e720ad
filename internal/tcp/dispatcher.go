package tcp

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/homecare/backend/internal/service"
)

// Dispatcher routes a decoded request envelope to its handler and turns the
// outcome into exactly one response envelope. The dispatch table is built once
// at construction and immutable afterwards.
type Dispatcher struct {
	handlers map[string]handlerFunc
	validate *validator.Validate
}

// handlerFunc decodes the raw payload, runs the operation and returns the
// result plus the success message for the envelope.
type handlerFunc func(ctx context.Context, data json.RawMessage) (any, string, error)

// NewDispatcher builds the dispatcher over the workflow and query services.
func NewDispatcher(workflow *service.WorkflowService, queries *service.QueryService) *Dispatcher {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	d := &Dispatcher{validate: validate}
	d.handlers = map[string]handlerFunc{
		OpCreateInspectionReport: d.createInspectionReport(workflow),
		OpUpdateInspectionReport: d.updateInspectionReport(workflow),
		OpGetInspectionDetail:    d.getInspectionDetail(queries),
		OpCreateWorkLog:          d.createWorkLog(workflow),
		OpCheckOut:               d.checkOut(workflow),
		OpGetBookings:            d.getBookings(queries),
		OpGetReviews:             d.getReviews(queries),
		OpGetPerformance:         d.getPerformance(queries),
	}
	return d
}

// Dispatch resolves the request type and runs it. It always returns exactly
// one envelope; the boolean reports whether it is a success envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, bool) {
	handler, ok := d.handlers[req.Type]
	if !ok {
		return NewErrorResponse(
			service.NewError(service.CodeUnknownRequestType, 400, "unknown request type: "+req.Type).
				WithPath("type"),
		), false
	}

	data, message, err := handler(ctx, req.Data)
	if err != nil {
		return NewErrorResponse(service.AsError(err)), false
	}
	return NewSuccessResponse(message, data), true
}

// decode unmarshals the payload into dst and validates it. Missing, null or
// non-object payloads and failed field constraints are rejected before any
// business logic runs.
func (d *Dispatcher) decode(data json.RawMessage, dst any) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return service.Validation("request data is required", "data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return service.Validation("request data is malformed", "data")
	}
	if err := d.validate.Struct(dst); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return service.Validation("invalid value for "+first.Field(), "data", first.Field())
		}
		return service.Validation("request data is invalid", "data")
	}
	return nil
}

type createInspectionReportPayload struct {
	BookingID     uint     `json:"bookingId" validate:"required,gt=0"`
	StaffID       uint     `json:"staffId" validate:"required,gt=0"`
	Images        []string `json:"images" validate:"required,min=1"`
	Note          string   `json:"note"`
	EstimatedTime string   `json:"estimatedTime"`
}

func (d *Dispatcher) createInspectionReport(workflow *service.WorkflowService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload createInspectionReportPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		report, err := workflow.CreateInspectionReport(ctx, payload.BookingID, payload.StaffID,
			payload.Images, payload.Note, payload.EstimatedTime)
		if err != nil {
			return nil, "", err
		}
		return report, "inspection report created", nil
	}
}

type updateInspectionReportPayload struct {
	ID            uint     `json:"id" validate:"required,gt=0"`
	Note          *string  `json:"note"`
	Images        []string `json:"images"`
	EstimatedTime *string  `json:"estimatedTime"`
}

func (d *Dispatcher) updateInspectionReport(workflow *service.WorkflowService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload updateInspectionReportPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		report, err := workflow.UpdateInspectionReport(ctx, payload.ID, service.ReportUpdate{
			Note:          payload.Note,
			Images:        payload.Images,
			EstimatedTime: payload.EstimatedTime,
		})
		if err != nil {
			return nil, "", err
		}
		return report, "inspection report updated", nil
	}
}

type getInspectionDetailPayload struct {
	BookingID uint `json:"bookingId" validate:"required,gt=0"`
}

func (d *Dispatcher) getInspectionDetail(queries *service.QueryService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload getInspectionDetailPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		report, err := queries.InspectionDetail(ctx, payload.BookingID)
		if err != nil {
			return nil, "", err
		}
		return report, "inspection report detail", nil
	}
}

type createWorkLogPayload struct {
	StaffID   uint `json:"staffId" validate:"required,gt=0"`
	BookingID uint `json:"bookingId" validate:"required,gt=0"`
}

func (d *Dispatcher) createWorkLog(workflow *service.WorkflowService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload createWorkLogPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		workLog, err := workflow.CheckIn(ctx, payload.StaffID, payload.BookingID)
		if err != nil {
			return nil, "", err
		}
		return workLog, "checked in", nil
	}
}

type checkOutPayload struct {
	BookingID uint `json:"bookingId" validate:"required,gt=0"`
}

func (d *Dispatcher) checkOut(workflow *service.WorkflowService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload checkOutPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		workLog, err := workflow.CheckOut(ctx, payload.BookingID)
		if err != nil {
			return nil, "", err
		}
		return workLog, "checked out", nil
	}
}

type getBookingsPayload struct {
	StaffID uint   `json:"staffId" validate:"omitempty,gt=0"`
	Date    string `json:"date" validate:"required"`
}

func (d *Dispatcher) getBookings(queries *service.QueryService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload getBookingsPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		day, err := time.ParseInLocation("2006-01-02", payload.Date, time.Local)
		if err != nil {
			return nil, "", service.Validation("date must be formatted as YYYY-MM-DD", "data", "date")
		}
		bookings, err := queries.BookingsByDate(ctx, payload.StaffID, day)
		if err != nil {
			return nil, "", err
		}
		return bookings, "bookings for date", nil
	}
}

type getReviewsPayload struct {
	StaffID uint `json:"staffId" validate:"required,gt=0"`
	Limit   int  `json:"limit" validate:"omitempty,gt=0"`
}

func (d *Dispatcher) getReviews(queries *service.QueryService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload getReviewsPayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		reviews, avg, err := queries.StaffReviews(ctx, payload.StaffID, payload.Limit)
		if err != nil {
			return nil, "", err
		}
		return map[string]any{
			"reviews":       reviews,
			"averageRating": avg,
		}, "staff reviews", nil
	}
}

type getPerformancePayload struct {
	StaffID uint `json:"staffId" validate:"required,gt=0"`
}

func (d *Dispatcher) getPerformance(queries *service.QueryService) handlerFunc {
	return func(ctx context.Context, data json.RawMessage) (any, string, error) {
		var payload getPerformancePayload
		if err := d.decode(data, &payload); err != nil {
			return nil, "", err
		}
		stats, err := queries.Performance(ctx, payload.StaffID)
		if err != nil {
			return nil, "", err
		}
		return stats, "staff performance", nil
	}
}
