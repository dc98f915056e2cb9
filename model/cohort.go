package model

import (
	"time"

	"gorm.io/gorm"
)

// Cohort is a scheduled run of an offering that students enroll into
type Cohort struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OfferingID uint           `gorm:"not null;index" json:"offering_id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	StartDate  time.Time      `gorm:"type:date" json:"start_date"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Offering Offering `gorm:"foreignKey:OfferingID" json:"offering,omitempty"`
}

// TableName specifies the table name for Cohort
func (Cohort) TableName() string {
	return "cohorts"
}
