package database

import (
	"context"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckoutRepository is the GORM backed services.CheckoutStore
type CheckoutRepository struct {
	db *gorm.DB
}

var _ services.CheckoutStore = (*CheckoutRepository)(nil)

// NewCheckoutRepository creates a new checkout repository
func NewCheckoutRepository(db *gorm.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

func (r *CheckoutRepository) GetCohort(ctx context.Context, id uint) (*model.Cohort, error) {
	var cohort model.Cohort
	if err := r.db.WithContext(ctx).Preload("Offering").First(&cohort, id).Error; err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *CheckoutRepository) FindActiveCoupon(ctx context.Context, code string, offeringID uint) (*model.DiscountCoupon, error) {
	var coupon model.DiscountCoupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND offering_id = ? AND is_active = ?", code, offeringID, true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *CheckoutRepository) CreateCoupon(ctx context.Context, coupon *model.DiscountCoupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// IncrementCouponUses is a single conditional UPDATE, so the cap holds under concurrency
func (r *CheckoutRepository) IncrementCouponUses(ctx context.Context, couponID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.DiscountCoupon{}).
		Where("id = ? AND is_active = ? AND (max_uses IS NULL OR current_uses < max_uses)", couponID, true).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *CheckoutRepository) DeactivateExpiredCoupons(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.DiscountCoupon{}).
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *CheckoutRepository) CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Cohort", "Invoices").Create(enrollment).Error
}

func (r *CheckoutRepository) GetEnrollment(ctx context.Context, id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := r.db.WithContext(ctx).Preload("Cohort").First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *CheckoutRepository) UpdateEnrollmentStatus(ctx context.Context, id uint, from, to model.EnrollmentStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case model.EnrollmentStatusActive:
		updates["activated_at"] = at
	case model.EnrollmentStatusCancelled:
		updates["cancelled_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *CheckoutRepository) FindEnrollmentsWithoutInvoices(ctx context.Context, createdBefore time.Time) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.EnrollmentStatusPendingPayment, createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM invoices WHERE invoices.enrollment_id = enrollments.id AND invoices.deleted_at IS NULL)").
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *CheckoutRepository) CreateInvoices(ctx context.Context, invoices []model.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&invoices).Error
}

func (r *CheckoutRepository) GetInvoice(ctx context.Context, id uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *CheckoutRepository) ListInvoicesByEnrollment(ctx context.Context, enrollmentID uint) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("due_date ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *CheckoutRepository) SaveInvoicePaymentLink(ctx context.Context, invoiceID uint, reference string, meta datatypes.JSONMap) error {
	result := r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]interface{}{
			"provider_reference": reference,
			"meta":               meta,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CheckoutRepository) MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("id = ? AND status = ?", invoiceID, model.InvoiceStatusPending).
		Updates(map[string]interface{}{
			"status":  model.InvoiceStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Transaction runs fn inside a database transaction; returning an error rolls back
func (r *CheckoutRepository) Transaction(ctx context.Context, fn func(tx services.CheckoutStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CheckoutRepository{db: tx})
	})
}

// CountEnrollmentsWithoutInvoices backs the health check
func (r *CheckoutRepository) CountEnrollmentsWithoutInvoices(ctx context.Context, createdBefore time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("status = ? AND created_at < ?", model.EnrollmentStatusPendingPayment, createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM invoices WHERE invoices.enrollment_id = enrollments.id AND invoices.deleted_at IS NULL)").
		Count(&count).Error
	return count, err
}
