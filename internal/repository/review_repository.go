package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
)

// ReviewRepository provides persistence access for Review entities.
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository constructs a repository using the provided gorm DB.
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ListByStaff returns reviews for a staff member, newest first.
func (r *ReviewRepository) ListByStaff(ctx context.Context, staffID uint, limit int) ([]models.Review, error) {
	if limit <= 0 {
		limit = 50
	}
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("created_at desc").
		Limit(limit).
		Find(&reviews).Error
	return reviews, errors.WithStack(err)
}

// AverageRating returns the mean rating across a staff member's reviews, or
// zero when none exist.
func (r *ReviewRepository) AverageRating(ctx context.Context, staffID uint) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("staff_id = ?", staffID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
