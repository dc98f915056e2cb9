package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceStatus represents the payment state of a single installment
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Invoice is one scheduled installment owed on an enrollment
type Invoice struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	EnrollmentID      uint              `gorm:"not null;index" json:"enrollment_id"`
	Label             string            `gorm:"type:varchar(255);not null" json:"label"`
	Amount            int64             `gorm:"not null;check:amount >= 0" json:"amount"`
	DueDate           time.Time         `gorm:"type:date;not null;index" json:"due_date"`
	Status            InvoiceStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	ProviderReference *string           `gorm:"type:varchar(255)" json:"provider_reference,omitempty"`
	Meta              datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName specifies the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// IsPaid reports whether the invoice has been settled
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}
