package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
	"github.com/example/homecare/backend/internal/repository"
)

// QueryService serves the read-only staff catalog: booking listings,
// inspection details, reviews and performance aggregates. No operation here
// mutates state, so nothing runs in a transaction.
type QueryService struct {
	bookings    *repository.BookingRepository
	inspections *repository.InspectionRepository
	workLogs    *repository.WorkLogRepository
	reviews     *repository.ReviewRepository
}

// NewQueryService builds a query service over the given database handle.
func NewQueryService(db *gorm.DB) *QueryService {
	return &QueryService{
		bookings:    repository.NewBookingRepository(db),
		inspections: repository.NewInspectionRepository(db),
		workLogs:    repository.NewWorkLogRepository(db),
		reviews:     repository.NewReviewRepository(db),
	}
}

// BookingsByDate lists a staff member's bookings scheduled on a calendar day.
func (s *QueryService) BookingsByDate(ctx context.Context, staffID uint, day time.Time) ([]models.Booking, error) {
	return s.bookings.ListByDate(ctx, staffID, day)
}

// InspectionDetail returns the inspection report attached to a booking.
func (s *QueryService) InspectionDetail(ctx context.Context, bookingID uint) (*models.InspectionReport, error) {
	report, err := s.inspections.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("inspection report").WithPath("bookingId")
		}
		return nil, err
	}
	return report, nil
}

// StaffReviews lists reviews for a staff member together with the average rating.
func (s *QueryService) StaffReviews(ctx context.Context, staffID uint, limit int) ([]models.Review, float64, error) {
	reviews, err := s.reviews.ListByStaff(ctx, staffID, limit)
	if err != nil {
		return nil, 0, err
	}
	avg, err := s.reviews.AverageRating(ctx, staffID)
	if err != nil {
		return nil, 0, err
	}
	return reviews, avg, nil
}

// PerformanceStats summarizes a staff member's completed work.
type PerformanceStats struct {
	StaffID       uint    `json:"staffId"`
	CompletedJobs int64   `json:"completedJobs"`
	HoursWorked   float64 `json:"hoursWorked"`
	AverageRating float64 `json:"averageRating"`
}

// Performance aggregates completed job count, total hours worked and the
// average review rating for a staff member.
func (s *QueryService) Performance(ctx context.Context, staffID uint) (*PerformanceStats, error) {
	jobs, hours, err := s.workLogs.CompletedStats(ctx, staffID)
	if err != nil {
		return nil, err
	}
	avg, err := s.reviews.AverageRating(ctx, staffID)
	if err != nil {
		return nil, err
	}
	return &PerformanceStats{
		StaffID:       staffID,
		CompletedJobs: jobs,
		HoursWorked:   hours,
		AverageRating: avg,
	}, nil
}
