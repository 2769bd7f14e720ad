package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
)

// WorkLogRepository provides persistence access for WorkLog entities.
type WorkLogRepository struct {
	db *gorm.DB
}

// NewWorkLogRepository constructs a repository using the provided gorm DB.
func NewWorkLogRepository(db *gorm.DB) *WorkLogRepository {
	return &WorkLogRepository{db: db}
}

// Create persists the work log.
func (r *WorkLogRepository) Create(ctx context.Context, workLog *models.WorkLog) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(workLog).Error)
}

// Update persists the modified work log.
func (r *WorkLogRepository) Update(ctx context.Context, workLog *models.WorkLog) error {
	return errors.WithStack(r.db.WithContext(ctx).Save(workLog).Error)
}

// FindOpen returns the open work log (no check-out yet) for a staff/booking
// pair, if one exists.
func (r *WorkLogRepository) FindOpen(ctx context.Context, staffID, bookingID uint) (*models.WorkLog, error) {
	var workLog models.WorkLog
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND booking_id = ? AND check_out IS NULL", staffID, bookingID).
		First(&workLog).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &workLog, nil
}

// FindLatestByBooking returns the most recent work log for a booking.
func (r *WorkLogRepository) FindLatestByBooking(ctx context.Context, bookingID uint) (*models.WorkLog, error) {
	var workLog models.WorkLog
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id desc").
		First(&workLog).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &workLog, nil
}

// CompletedStats aggregates a staff member's finished work logs: count of
// completed jobs and total hours between check-in and check-out.
func (r *WorkLogRepository) CompletedStats(ctx context.Context, staffID uint) (int64, float64, error) {
	var logs []models.WorkLog
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND check_in IS NOT NULL AND check_out IS NOT NULL", staffID).
		Find(&logs).Error
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}

	var hours float64
	for _, wl := range logs {
		hours += wl.CheckOut.Sub(*wl.CheckIn).Hours()
	}
	return int64(len(logs)), hours, nil
}
