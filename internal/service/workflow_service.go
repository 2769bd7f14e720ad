package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
	"github.com/example/homecare/backend/internal/mq"
	"github.com/example/homecare/backend/internal/repository"
)

const (
	// reportUpdateWindow is how long after creation an inspection report
	// stays mutable.
	reportUpdateWindow = 24 * time.Hour
	// checkOutWindow is how long after check-in a checkout is accepted.
	checkOutWindow = 24 * time.Hour
	// checkInDayWindow is the permitted floored day difference between the
	// check-in moment and the service request's preferred date.
	checkInDayWindow = 1
)

// WorkflowService implements the booking workflow state machine. Every
// mutating operation runs as a single database transaction: either all of its
// read-then-write steps apply or none do.
type WorkflowService struct {
	db *gorm.DB
	mq mq.Publisher
}

// NewWorkflowService builds a service with dependencies. The publisher may be
// nil; events are then skipped.
func NewWorkflowService(db *gorm.DB, publisher mq.Publisher) *WorkflowService {
	return &WorkflowService{db: db, mq: publisher}
}

// ReportUpdate carries the mutable inspection report fields. Nil pointers and
// a nil image slice mean "leave unchanged".
type ReportUpdate struct {
	Note          *string
	Images        []string
	EstimatedTime *string
}

func (u ReportUpdate) empty() bool {
	return u.Note == nil && u.Images == nil && u.EstimatedTime == nil
}

// CreateInspectionReport records a staff inspection against a booking. At
// most one report may exist per booking; a duplicate attempt fails with
// Error.InspectionReportExists. The unique index on booking_id backs the
// in-transaction existence check, so a concurrent duplicate create loses at
// commit time and maps to the same error.
func (s *WorkflowService) CreateInspectionReport(ctx context.Context, bookingID, staffID uint, images []string, note, estimatedTime string) (*models.InspectionReport, error) {
	report := &models.InspectionReport{
		BookingID:     bookingID,
		StaffID:       staffID,
		Note:          note,
		Images:        models.ImageList(images),
		EstimatedTime: estimatedTime,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := repository.NewInspectionRepository(tx)

		_, err := reports.FindByBookingID(ctx, bookingID)
		if err == nil {
			return NewError(CodeInspectionReportExists, 400, "inspection report already exists for this booking").
				WithPath("bookingId").
				WithDetails(map[string]any{"bookingId": bookingID})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := reports.Create(ctx, report); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return NewError(CodeInspectionReportExists, 400, "inspection report already exists for this booking").
					WithPath("bookingId").
					WithDetails(map[string]any{"bookingId": bookingID})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "booking.inspection_created", map[string]any{
		"reportId":  report.ID,
		"bookingId": report.BookingID,
		"staffId":   report.StaffID,
	})
	return report, nil
}

// UpdateInspectionReport applies the supplied fields to an existing report.
// Reports are mutable for 24 hours after creation and immutable afterwards.
func (s *WorkflowService) UpdateInspectionReport(ctx context.Context, id uint, upd ReportUpdate) (*models.InspectionReport, error) {
	if upd.empty() {
		return nil, NewError(CodeNoValidUpdateData, 422, "no valid fields to update").WithPath("data")
	}

	now := time.Now()
	var report *models.InspectionReport

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := repository.NewInspectionRepository(tx)

		found, err := reports.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("inspection report").WithPath("id")
			}
			return err
		}

		if now.Sub(found.CreatedAt) > reportUpdateWindow {
			return NewError(CodeReportUpdateTooLate, 400, "inspection report can no longer be updated").
				WithDetails(map[string]any{
					"reportId":  found.ID,
					"createdAt": found.CreatedAt.Format(time.RFC3339),
				})
		}

		if upd.Note != nil {
			found.Note = *upd.Note
		}
		if upd.Images != nil {
			found.Images = models.ImageList(upd.Images)
		}
		if upd.EstimatedTime != nil {
			found.EstimatedTime = *upd.EstimatedTime
		}
		if err := reports.Update(ctx, found); err != nil {
			return err
		}
		report = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "booking.inspection_updated", map[string]any{
		"reportId":  report.ID,
		"bookingId": report.BookingID,
	})
	return report, nil
}

// CheckIn opens a work log for a staff member on a booking and moves the
// linked service request to IN_PROGRESS, atomically. A staff member cannot
// hold two open work logs on the same booking, and the check-in must fall
// within one day of the service request's preferred date when one exists.
func (s *WorkflowService) CheckIn(ctx context.Context, staffID, bookingID uint) (*models.WorkLog, error) {
	now := time.Now()
	workLog := &models.WorkLog{
		StaffID:   staffID,
		BookingID: bookingID,
		CheckIn:   &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := repository.NewBookingRepository(tx)
		workLogs := repository.NewWorkLogRepository(tx)
		requests := repository.NewServiceRequestRepository(tx)

		booking, err := bookings.FindByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(CodeBookingNotFound, 404, "booking not found").WithPath("bookingId")
			}
			return err
		}

		if booking.Status == models.BookingStatusCompleted || booking.Status == models.BookingStatusCancelled {
			return NewError(CodeInvalidBookingStatusForCheckIn, 400, "booking status does not allow check-in").
				WithDetails(map[string]any{"status": booking.Status})
		}

		_, err = workLogs.FindOpen(ctx, staffID, bookingID)
		if err == nil {
			return NewError(CodeAlreadyCheckedIn, 400, "staff member is already checked in to this booking").
				WithDetails(map[string]any{"staffId": staffID, "bookingId": bookingID})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if booking.ServiceRequest != nil && booking.ServiceRequest.PreferredDate != nil {
			preferred := *booking.ServiceRequest.PreferredDate
			dayDiff := math.Floor(math.Abs(now.Sub(preferred).Hours()) / 24)
			if dayDiff > checkInDayWindow {
				return NewError(CodeDateMismatchPreferredDate, 400, "check-in date does not match the preferred service date").
					WithDetails(map[string]any{"preferredDate": preferred.Format(time.RFC3339)})
			}
		}

		if err := workLogs.Create(ctx, workLog); err != nil {
			return err
		}
		if booking.ServiceRequestID != nil {
			if err := requests.UpdateStatus(ctx, *booking.ServiceRequestID, models.ServiceRequestStatusInProgress); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "booking.checkedin", map[string]any{
		"workLogId": workLog.ID,
		"bookingId": bookingID,
		"staffId":   staffID,
	})
	return workLog, nil
}

// CheckOut closes the open work log on a booking and marks the booking
// COMPLETED, atomically. Checkout is rejected once more than 24 hours have
// passed since check-in.
func (s *WorkflowService) CheckOut(ctx context.Context, bookingID uint) (*models.WorkLog, error) {
	now := time.Now()
	var workLog *models.WorkLog

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings := repository.NewBookingRepository(tx)
		workLogs := repository.NewWorkLogRepository(tx)

		found, err := workLogs.FindLatestByBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("work log").WithPath("bookingId")
			}
			return err
		}

		if found.CheckOut != nil {
			return NewError(CodeAlreadyCheckedOut, 400, "work log is already checked out").
				WithDetails(map[string]any{"workLogId": found.ID})
		}
		if found.CheckIn == nil {
			return NewError(CodeMissingCheckIn, 400, "work log has no check-in time").
				WithDetails(map[string]any{"workLogId": found.ID})
		}
		if now.Sub(*found.CheckIn) > checkOutWindow {
			return NewError(CodeCheckOutTooLate, 400, "checkout window has expired").
				WithDetails(map[string]any{
					"workLogId": found.ID,
					"checkIn":   found.CheckIn.Format(time.RFC3339),
				})
		}

		found.CheckOut = &now
		if err := workLogs.Update(ctx, found); err != nil {
			return err
		}
		if err := bookings.UpdateStatus(ctx, bookingID, models.BookingStatusCompleted); err != nil {
			return err
		}
		workLog = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "booking.checkedout", map[string]any{
		"workLogId": workLog.ID,
		"bookingId": bookingID,
		"staffId":   workLog.StaffID,
	})
	return workLog, nil
}

func (s *WorkflowService) publishEvent(ctx context.Context, event string, payload map[string]any) {
	if s.mq == nil {
		return
	}
	payload["event"] = event
	payload["occurredAt"] = time.Now().UTC().Format(time.RFC3339)
	if err := s.mq.Publish(ctx, event, payload); err != nil {
		log.Printf("publish %s failed: %v", event, err)
	}
}
