package model

import (
	"time"

	"gorm.io/gorm"
)

// EnrollmentStatus represents the lifecycle of an enrollment
type EnrollmentStatus string

const (
	EnrollmentStatusPendingPayment EnrollmentStatus = "pending_payment"
	EnrollmentStatusActive         EnrollmentStatus = "active"
	EnrollmentStatusCancelled      EnrollmentStatus = "cancelled"
)

// Enrollment links a student to a cohort with the price agreed at checkout
type Enrollment struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	StudentID        uint             `gorm:"not null;index" json:"student_id"`
	CohortID         uint             `gorm:"not null;index" json:"cohort_id"`
	CouponID         *uint            `gorm:"index" json:"coupon_id,omitempty"`
	AgreedTotal      int64            `gorm:"not null;check:agreed_total > 0" json:"agreed_total"`
	InstallmentCount int              `gorm:"not null;default:1" json:"installment_count"`
	Status           EnrollmentStatus `gorm:"type:varchar(20);not null;default:'pending_payment';index" json:"status"`
	ActivatedAt      *time.Time       `json:"activated_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relationships
	Cohort   Cohort    `gorm:"foreignKey:CohortID" json:"cohort,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"invoices,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
