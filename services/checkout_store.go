package services

import (
	"context"
	"errors"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckoutStore is the persistence collaborator of the checkout services.
// Lookups return gorm.ErrRecordNotFound when nothing matches.
type CheckoutStore interface {
	GetCohort(ctx context.Context, id uint) (*model.Cohort, error)

	FindActiveCoupon(ctx context.Context, code string, offeringID uint) (*model.DiscountCoupon, error)
	CreateCoupon(ctx context.Context, coupon *model.DiscountCoupon) error
	// IncrementCouponUses bumps current_uses only while it is below max_uses.
	// It reports false when no row was updated.
	IncrementCouponUses(ctx context.Context, couponID uint) (bool, error)
	DeactivateExpiredCoupons(ctx context.Context, now time.Time) (int64, error)

	CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error
	GetEnrollment(ctx context.Context, id uint) (*model.Enrollment, error)
	// UpdateEnrollmentStatus moves an enrollment to status `to` if it is currently in `from`.
	UpdateEnrollmentStatus(ctx context.Context, id uint, from model.EnrollmentStatus, to model.EnrollmentStatus, at time.Time) (bool, error)
	FindEnrollmentsWithoutInvoices(ctx context.Context, createdBefore time.Time) ([]model.Enrollment, error)

	CreateInvoices(ctx context.Context, invoices []model.Invoice) error
	GetInvoice(ctx context.Context, id uint) (*model.Invoice, error)
	ListInvoicesByEnrollment(ctx context.Context, enrollmentID uint) ([]model.Invoice, error)
	SaveInvoicePaymentLink(ctx context.Context, invoiceID uint, reference string, meta datatypes.JSONMap) error
	// MarkInvoicePaid flips a pending invoice to paid and reports whether it changed.
	MarkInvoicePaid(ctx context.Context, invoiceID uint, paidAt time.Time) (bool, error)

	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx CheckoutStore) error) error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
