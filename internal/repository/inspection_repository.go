package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
)

// InspectionRepository provides persistence access for InspectionReport entities.
type InspectionRepository struct {
	db *gorm.DB
}

// NewInspectionRepository constructs a repository using the provided gorm DB.
func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// Create persists the report. The unique index on booking_id makes a
// concurrent duplicate surface as gorm.ErrDuplicatedKey.
func (r *InspectionRepository) Create(ctx context.Context, report *models.InspectionReport) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(report).Error)
}

// Update persists the modified report.
func (r *InspectionRepository) Update(ctx context.Context, report *models.InspectionReport) error {
	return errors.WithStack(r.db.WithContext(ctx).Save(report).Error)
}

// FindByID returns the report by id.
func (r *InspectionRepository) FindByID(ctx context.Context, id uint) (*models.InspectionReport, error) {
	var report models.InspectionReport
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &report, nil
}

// FindByBookingID returns the report attached to a booking, if any.
func (r *InspectionRepository) FindByBookingID(ctx context.Context, bookingID uint) (*models.InspectionReport, error) {
	var report models.InspectionReport
	if err := r.db.WithContext(ctx).First(&report, "booking_id = ?", bookingID).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &report, nil
}
