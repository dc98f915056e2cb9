package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Payment methods an offering can be bought with
const (
	PaymentMethodFull         = "full"
	PaymentMethodInstallments = "installments"
)

// Offering is a purchasable program or course with its list price
type Offering struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string         `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	ProductType     string         `gorm:"type:varchar(50);not null;default:'program'" json:"product_type"` // program, course, workshop
	BasePrice       int64          `gorm:"not null;check:base_price > 0" json:"base_price"`
	MaxInstallments int            `gorm:"not null;default:1" json:"max_installments"`
	PaymentMethods  pq.StringArray `gorm:"type:text[];default:'{full,installments}'" json:"payment_methods"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Cohorts []Cohort `gorm:"foreignKey:OfferingID;constraint:OnDelete:CASCADE" json:"cohorts,omitempty"`
}

// TableName specifies the table name for Offering
func (Offering) TableName() string {
	return "offerings"
}

// AllowsPaymentMethod reports whether kind is enabled for the offering.
// An empty list enables every method.
func (o *Offering) AllowsPaymentMethod(kind string) bool {
	if len(o.PaymentMethods) == 0 {
		return true
	}
	for _, m := range o.PaymentMethods {
		if m == kind {
			return true
		}
	}
	return false
}
