package models

import (
	"time"
)

// BookingStatus describes the life-cycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// ServiceRequestStatus describes the life-cycle state of a service request.
type ServiceRequestStatus string

const (
	ServiceRequestStatusPending    ServiceRequestStatus = "PENDING"
	ServiceRequestStatusInProgress ServiceRequestStatus = "IN_PROGRESS"
	ServiceRequestStatusEstimated  ServiceRequestStatus = "ESTIMATED"
	ServiceRequestStatusCancelled  ServiceRequestStatus = "CANCELLED"
)

// Staff is a marketplace staff member assigned to bookings.
type Staff struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Phone     string    `gorm:"size:50" json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServiceRequest is the customer-originated request a booking fulfills.
type ServiceRequest struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	PreferredDate *time.Time           `json:"preferredDate"`
	Status        ServiceRequestStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	Description   string               `gorm:"type:text" json:"description"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Booking is a scheduled engagement between a customer and a staff member.
// ServiceRequestID is unique: a service request is linked to at most one booking.
type Booking struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Status           BookingStatus   `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	ServiceRequestID *uint           `gorm:"uniqueIndex" json:"serviceRequestId"`
	ServiceRequest   *ServiceRequest `gorm:"foreignKey:ServiceRequestID" json:"serviceRequest,omitempty"`
	StaffID          uint            `gorm:"index;not null" json:"staffId"`
	Staff            *Staff          `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	ScheduledDate    *time.Time      `gorm:"index" json:"scheduledDate"`
	Address          string          `gorm:"size:500" json:"address"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// InspectionReport is a staff-authored record of an on-site inspection,
// tied 1:1 to a booking by the unique index on BookingID.
type InspectionReport struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BookingID     uint      `gorm:"uniqueIndex;not null" json:"bookingId"`
	StaffID       uint      `gorm:"index;not null" json:"staffId"`
	Note          string    `gorm:"type:text" json:"note"`
	Images        ImageList `gorm:"type:text" json:"images"`
	EstimatedTime string    `gorm:"size:100" json:"estimatedTime"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// WorkLog is a staff check-in/check-out record against a booking. CheckOut
// stays nil until the staff member checks out.
type WorkLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StaffID   uint       `gorm:"index:idx_worklog_staff_booking;not null" json:"staffId"`
	BookingID uint       `gorm:"index:idx_worklog_staff_booking;not null" json:"bookingId"`
	CheckIn   *time.Time `json:"checkIn"`
	CheckOut  *time.Time `json:"checkOut"`
	Note      string     `gorm:"type:text" json:"note"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Review is customer feedback left on a completed booking.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookingID uint      `gorm:"index;not null" json:"bookingId"`
	StaffID   uint      `gorm:"index;not null" json:"staffId"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
