package model

import (
	"time"

	"gorm.io/gorm"
)

// DiscountCoupon is a promotional code scoped to a single offering.
// At most one of DiscountPercent and DiscountAmount is set; a nil MaxUses means unlimited.
type DiscountCoupon struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Code            string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_coupon_code_offering" json:"code"`
	OfferingID      uint           `gorm:"not null;uniqueIndex:idx_coupon_code_offering" json:"offering_id"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	DiscountPercent *float64       `gorm:"check:discount_percent >= 0 AND discount_percent <= 100" json:"discount_percent,omitempty"`
	DiscountAmount  *int64         `gorm:"check:discount_amount >= 0" json:"discount_amount,omitempty"`
	ValidFrom       *time.Time     `json:"valid_from,omitempty"`
	ValidUntil      *time.Time     `json:"valid_until,omitempty"`
	MaxUses         *int           `json:"max_uses,omitempty"`
	CurrentUses     int            `gorm:"not null;default:0" json:"current_uses"`
	IsActive        bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for DiscountCoupon
func (DiscountCoupon) TableName() string {
	return "discount_coupons"
}
