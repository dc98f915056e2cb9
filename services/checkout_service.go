package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/utils/metrics"
)

// QuoteRequest asks for the price of a cohort with a payment method and optional coupon
type QuoteRequest struct {
	CohortID      uint                   `json:"cohort_id" validate:"required,min=1"`
	PaymentMethod PaymentMethodSelection `json:"payment_method" validate:"required"`
	Quantity      int                    `json:"quantity" validate:"omitempty,min=1,max=100"`
	CouponCode    string                 `json:"coupon_code" validate:"omitempty,max=40"`
}

// Quote is the priced checkout shown to the student before paying
type Quote struct {
	CohortID     uint              `json:"cohort_id"`
	OfferingID   uint              `json:"offering_id"`
	OfferingName string            `json:"offering_name"`
	ProductType  string            `json:"product_type"`
	Calculation  PriceCalculation  `json:"calculation"`
	Coupon       *CouponValidation `json:"coupon,omitempty"`
}

// CheckoutRequest turns a quote into an enrollment
type CheckoutRequest struct {
	QuoteRequest
	FirstDueDate *time.Time `json:"first_due_date"`
}

// CheckoutResult is the enrollment created by a checkout
type CheckoutResult struct {
	Quote      *Quote            `json:"quote"`
	Enrollment *model.Enrollment `json:"enrollment"`
}

// CheckoutService prices cohorts and converts quotes into enrollments
type CheckoutService struct {
	store      CheckoutStore
	calculator *PriceCalculator
	coupons    *CouponService
	settlement *SettlementService
	log        *slog.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store CheckoutStore,
	calculator *PriceCalculator,
	coupons *CouponService,
	settlement *SettlementService,
	log *slog.Logger,
) *CheckoutService {
	if calculator == nil {
		calculator = defaultPriceCalculator
	}
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		store:      store,
		calculator: calculator,
		coupons:    coupons,
		settlement: settlement,
		log:        log,
	}
}

// Quote prices a cohort. Coupons apply to the price left after the payment method discount.
func (s *CheckoutService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	cohort, err := s.store.GetCohort(ctx, req.CohortID)
	if err != nil {
		if isNotFound(err) {
			return nil, newCheckoutError(ErrNotFound, "Cohort not found")
		}
		return nil, fmt.Errorf("failed to load cohort: %w", err)
	}

	offering := &cohort.Offering
	if !offering.IsActive {
		return nil, newCheckoutError(ErrInvalidInput, "This program is not available for purchase")
	}
	if err := ValidatePaymentMethod(req.PaymentMethod, offering); err != nil {
		return nil, err
	}

	params := PriceParams{
		BasePrice:     offering.BasePrice,
		PaymentMethod: req.PaymentMethod,
		Quantity:      req.Quantity,
	}
	calc := s.calculator.Calculate(params)

	quote := &Quote{
		CohortID:     cohort.ID,
		OfferingID:   offering.ID,
		OfferingName: offering.Name,
		ProductType:  offering.ProductType,
		Calculation:  calc,
	}

	if strings.TrimSpace(req.CouponCode) != "" {
		validation, err := s.coupons.ValidateCoupon(ctx, req.CouponCode, offering.ID, calc.Subtotal-calc.PaymentMethodDiscount)
		if err != nil {
			return nil, err
		}
		quote.Coupon = validation

		if validation.Valid {
			params.CouponDiscountAmount = validation.DiscountAmount
			quote.Calculation = s.calculator.Calculate(params)
		}
	}

	metrics.QuotesCalculated.Inc()
	return quote, nil
}

// Checkout re-prices the request server side and settles an enrollment for the total.
// An invalid coupon fails the checkout instead of being silently dropped.
func (s *CheckoutService) Checkout(ctx context.Context, studentID uint, req CheckoutRequest) (*CheckoutResult, error) {
	if studentID == 0 {
		return nil, newCheckoutError(ErrForbidden, "A student account is required")
	}

	quote, err := s.Quote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	var couponID *uint
	if quote.Coupon != nil {
		if !quote.Coupon.Valid {
			return nil, quote.Coupon.Err
		}
		couponID = &quote.Coupon.Coupon.ID
		if quote.Calculation.Total <= 0 {
			return nil, newCheckoutError(ErrInvalidCoupon, "This coupon covers the full price and cannot be used for online checkout")
		}
	}

	var firstDue time.Time
	if req.FirstDueDate != nil {
		firstDue = *req.FirstDueDate
	}

	enrollment, err := s.settlement.CreateEnrollmentWithSchedule(ctx, EnrollmentRequest{
		StudentID:        studentID,
		CohortID:         quote.CohortID,
		AgreedTotal:      quote.Calculation.Total,
		InstallmentCount: req.PaymentMethod.InstallmentCount(),
		FirstDueDate:     firstDue,
		CouponID:         couponID,
		InvoiceContext: InvoiceContext{
			Description: quote.OfferingName,
			ProductType: quote.ProductType,
			CohortID:    quote.CohortID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout completed",
		slog.Uint64("student_id", uint64(studentID)),
		slog.Uint64("enrollment_id", uint64(enrollment.ID)),
		slog.Int64("total", quote.Calculation.Total),
	)

	return &CheckoutResult{Quote: quote, Enrollment: enrollment}, nil
}
