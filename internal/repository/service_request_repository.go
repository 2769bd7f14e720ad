package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/homecare/backend/internal/models"
)

// ServiceRequestRepository provides persistence access for ServiceRequest entities.
type ServiceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository constructs a repository using the provided gorm DB.
func NewServiceRequestRepository(db *gorm.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// FindByID returns the service request by id.
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return &request, nil
}

// UpdateStatus sets only the service request status.
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, id uint, status models.ServiceRequestStatus) error {
	return errors.WithStack(r.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ?", id).
		Update("status", status).Error)
}
