package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/utils/metrics"
	"github.com/shopspring/decimal"
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,40}$`)

// CouponValidation is the structured outcome of a coupon check.
// Domain failures are reported through Valid=false and Error, never as a Go error.
type CouponValidation struct {
	Valid          bool                  `json:"valid"`
	Coupon         *model.DiscountCoupon `json:"coupon,omitempty"`
	DiscountAmount int64                 `json:"discount_amount"`
	ErrorCode      string                `json:"error_code,omitempty"`
	ErrorMessage   string                `json:"error,omitempty"`
	Err            *CheckoutError        `json:"-"`
}

func invalidCoupon(err *CheckoutError) *CouponValidation {
	return &CouponValidation{
		Valid:        false,
		ErrorCode:    err.Code(),
		ErrorMessage: err.Message,
		Err:          err,
	}
}

// CouponService validates and redeems discount coupons
type CouponService struct {
	store CheckoutStore
	log   *slog.Logger
	now   func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(store CheckoutStore, log *slog.Logger) *CouponService {
	return &CouponService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// NormalizeCouponCode upper-cases and trims a user supplied code
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCoupon checks code against offeringID at the current time and computes the
// discount it would grant on subtotal. It never writes; call RedeemCoupon once the
// enrollment is committed.
func (s *CouponService) ValidateCoupon(ctx context.Context, code string, offeringID uint, subtotal int64) (*CouponValidation, error) {
	result, err := s.validate(ctx, code, offeringID, subtotal)
	if err != nil {
		return nil, err
	}

	outcome := "valid"
	if !result.Valid {
		outcome = result.ErrorCode
	}
	metrics.CouponValidations.WithLabelValues(outcome).Inc()

	return result, nil
}

func (s *CouponService) validate(ctx context.Context, code string, offeringID uint, subtotal int64) (*CouponValidation, error) {
	normalized := NormalizeCouponCode(code)
	if !couponCodePattern.MatchString(normalized) {
		return invalidCoupon(newCheckoutError(ErrInvalidInput, "Coupon code is malformed")), nil
	}

	coupon, err := s.store.FindActiveCoupon(ctx, normalized, offeringID)
	if err != nil {
		if isNotFound(err) {
			return invalidCoupon(newCheckoutError(ErrInvalidCoupon, "Invalid coupon code")), nil
		}
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}

	now := s.now()
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return invalidCoupon(newCheckoutError(ErrCouponNotYetValid,
			fmt.Sprintf("This coupon is valid from %s", coupon.ValidFrom.Format("2006-01-02")))), nil
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return invalidCoupon(newCheckoutError(ErrCouponExpired, "This coupon has expired")), nil
	}
	if coupon.MaxUses != nil && coupon.CurrentUses >= *coupon.MaxUses {
		return invalidCoupon(newCheckoutError(ErrUsageLimitReached, "This coupon has reached its usage limit")), nil
	}

	return &CouponValidation{
		Valid:          true,
		Coupon:         coupon,
		DiscountAmount: CouponDiscount(coupon, subtotal),
	}, nil
}

// CouponDiscount is the amount coupon takes off subtotal, never more than subtotal
func CouponDiscount(coupon *model.DiscountCoupon, subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}

	var discount int64
	switch {
	case coupon.DiscountPercent != nil:
		discount = percentOf(subtotal, decimal.NewFromFloat(*coupon.DiscountPercent))
	case coupon.DiscountAmount != nil:
		discount = *coupon.DiscountAmount
	}

	return min(max(discount, 0), subtotal)
}

// RedeemCoupon consumes one use of the coupon. The increment is conditional on the
// usage cap, so concurrent redemptions can never exceed max_uses.
func (s *CouponService) RedeemCoupon(ctx context.Context, couponID uint) error {
	return redeemCoupon(ctx, s.store, couponID)
}

func redeemCoupon(ctx context.Context, store CheckoutStore, couponID uint) error {
	ok, err := store.IncrementCouponUses(ctx, couponID)
	if err != nil {
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}
	if !ok {
		return newCheckoutError(ErrUsageLimitReached, "This coupon has reached its usage limit")
	}
	return nil
}

// CreateCouponRequest is the admin payload for a new coupon
type CreateCouponRequest struct {
	Code            string     `json:"code" validate:"required,min=3,max=40"`
	OfferingID      uint       `json:"offering_id" validate:"required,min=1"`
	Description     string     `json:"description" validate:"omitempty,max=1000"`
	DiscountPercent *float64   `json:"discount_percent" validate:"omitempty,gt=0,lte=100"`
	DiscountAmount  *int64     `json:"discount_amount" validate:"omitempty,gt=0"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
	MaxUses         *int       `json:"max_uses" validate:"omitempty,min=1"`
}

// CreateCoupon stores a new active coupon
func (s *CouponService) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*model.DiscountCoupon, error) {
	code := NormalizeCouponCode(req.Code)
	if !couponCodePattern.MatchString(code) {
		return nil, newCheckoutError(ErrInvalidInput, "Coupon code may only contain letters, digits, '-' and '_'")
	}
	if req.DiscountPercent != nil && req.DiscountAmount != nil {
		return nil, newCheckoutError(ErrInvalidInput, "Set either discount_percent or discount_amount, not both")
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return nil, newCheckoutError(ErrInvalidInput, "valid_until must be after valid_from")
	}

	coupon := &model.DiscountCoupon{
		Code:            code,
		OfferingID:      req.OfferingID,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		MaxUses:         req.MaxUses,
		IsActive:        true,
	}
	if err := s.store.CreateCoupon(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.log.Info("coupon created", slog.String("code", code), slog.Uint64("offering_id", uint64(req.OfferingID)))
	return coupon, nil
}

// DeactivateExpiredCoupons switches off coupons whose validity window has ended
func (s *CouponService) DeactivateExpiredCoupons(ctx context.Context) (int64, error) {
	return s.store.DeactivateExpiredCoupons(ctx, s.now())
}
