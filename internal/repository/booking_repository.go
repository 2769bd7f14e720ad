package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
)

// BookingRepository provides persistence access for Booking entities.
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository constructs a repository using the provided gorm DB.
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByID returns the booking by id with its service request preloaded.
func (r *BookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("ServiceRequest").First(&booking, "id = ?", id).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &booking, nil
}

// Update persists the modified booking.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	return errors.WithStack(r.db.WithContext(ctx).Save(booking).Error)
}

// UpdateStatus sets only the booking status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) error {
	return errors.WithStack(r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error)
}

// ListByDate returns bookings scheduled within the given calendar day for a
// staff member, ordered by scheduled time. A zero staffID matches all staff.
func (r *BookingRepository) ListByDate(ctx context.Context, staffID uint, day time.Time) ([]models.Booking, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	query := r.db.WithContext(ctx).
		Preload("ServiceRequest").
		Where("scheduled_date >= ? AND scheduled_date < ?", start, end)
	if staffID > 0 {
		query = query.Where("staff_id = ?", staffID)
	}

	var bookings []models.Booking
	err := query.Order("scheduled_date asc").Find(&bookings).Error
	return bookings, errors.WithStack(err)
}
