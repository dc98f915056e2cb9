package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/services/servicestest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCouponService(store *servicestest.MemoryStore, now time.Time) *services.CouponService {
	svc := services.NewCouponService(store, discardLogger())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestValidateCouponPercent(t *testing.T) {
	store := servicestest.NewMemoryStore()
	store.AddCoupon(model.DiscountCoupon{Code: "PROMO20", OfferingID: 1, DiscountPercent: ptr(20.0), IsActive: true})
	svc := newTestCouponService(store, time.Now())

	res, err := svc.ValidateCoupon(context.Background(), " promo20 ", 1, 500000)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(100000), res.DiscountAmount)
	assert.Equal(t, "PROMO20", res.Coupon.Code)
}

func TestValidateCouponFixedAmountClampsToSubtotal(t *testing.T) {
	store := servicestest.NewMemoryStore()
	store.AddCoupon(model.DiscountCoupon{Code: "FLAT100K", OfferingID: 1, DiscountAmount: ptr(int64(100000)), IsActive: true})
	svc := newTestCouponService(store, time.Now())

	res, err := svc.ValidateCoupon(context.Background(), "FLAT100K", 1, 50000)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, int64(50000), res.DiscountAmount)
}

func TestValidateCouponFailures(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := servicestest.NewMemoryStore()
	store.AddCoupon(model.DiscountCoupon{Code: "LATER", OfferingID: 1, DiscountPercent: ptr(10.0), IsActive: true,
		ValidFrom: ptr(now.AddDate(0, 0, 5))})
	store.AddCoupon(model.DiscountCoupon{Code: "OLD", OfferingID: 1, DiscountPercent: ptr(10.0), IsActive: true,
		ValidUntil: ptr(now.AddDate(0, 0, -1))})
	store.AddCoupon(model.DiscountCoupon{Code: "USEDUP", OfferingID: 1, DiscountPercent: ptr(10.0), IsActive: true,
		MaxUses: ptr(2), CurrentUses: 2})
	store.AddCoupon(model.DiscountCoupon{Code: "OFF", OfferingID: 1, DiscountPercent: ptr(10.0), IsActive: false})
	store.AddCoupon(model.DiscountCoupon{Code: "OTHER", OfferingID: 2, DiscountPercent: ptr(10.0), IsActive: true})
	svc := newTestCouponService(store, now)

	tests := []struct {
		code     string
		wantCode string
	}{
		{"a!", services.CodeInvalidInput},
		{"", services.CodeInvalidInput},
		{"MISSING", services.CodeInvalidCoupon},
		{"OFF", services.CodeInvalidCoupon},
		{"OTHER", services.CodeInvalidCoupon},
		{"LATER", services.CodeCouponNotYetValid},
		{"OLD", services.CodeCouponExpired},
		{"USEDUP", services.CodeUsageLimitReached},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			res, err := svc.ValidateCoupon(context.Background(), tt.code, 1, 100000)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.NotEmpty(t, res.ErrorMessage)
			assert.Zero(t, res.DiscountAmount)
		})
	}

	res, err := svc.ValidateCoupon(context.Background(), "LATER", 1, 100000)
	require.NoError(t, err)
	assert.Equal(t, "This coupon is valid from 2025-03-15", res.ErrorMessage)
}

func TestValidateCouponHasNoSideEffects(t *testing.T) {
	store := servicestest.NewMemoryStore()
	c := store.AddCoupon(model.DiscountCoupon{Code: "ONCE", OfferingID: 1, DiscountAmount: ptr(int64(5000)), IsActive: true, MaxUses: ptr(1)})
	svc := newTestCouponService(store, time.Now())

	first, err := svc.ValidateCoupon(context.Background(), "ONCE", 1, 100000)
	require.NoError(t, err)
	second, err := svc.ValidateCoupon(context.Background(), "ONCE", 1, 100000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, store.Coupon(c.ID).CurrentUses)
}

func TestRedeemCouponRespectsMaxUses(t *testing.T) {
	store := servicestest.NewMemoryStore()
	c := store.AddCoupon(model.DiscountCoupon{Code: "TWICE", OfferingID: 1, DiscountPercent: ptr(5.0), IsActive: true, MaxUses: ptr(2)})
	svc := newTestCouponService(store, time.Now())

	require.NoError(t, svc.RedeemCoupon(context.Background(), c.ID))
	require.NoError(t, svc.RedeemCoupon(context.Background(), c.ID))

	err := svc.RedeemCoupon(context.Background(), c.ID)
	assert.ErrorIs(t, err, services.ErrUsageLimitReached)
	assert.Equal(t, 2, store.Coupon(c.ID).CurrentUses)
}

func TestCouponDiscount(t *testing.T) {
	percent := &model.DiscountCoupon{DiscountPercent: ptr(20.0)}
	assert.Equal(t, int64(100000), services.CouponDiscount(percent, 500000))
	assert.Equal(t, int64(0), services.CouponDiscount(percent, 0))

	full := &model.DiscountCoupon{DiscountPercent: ptr(100.0)}
	assert.Equal(t, int64(777), services.CouponDiscount(full, 777))

	fixed := &model.DiscountCoupon{DiscountAmount: ptr(int64(100000))}
	for _, subtotal := range []int64{1, 50000, 100000, 200000} {
		assert.LessOrEqual(t, services.CouponDiscount(fixed, subtotal), subtotal)
	}

	assert.Equal(t, int64(0), services.CouponDiscount(&model.DiscountCoupon{}, 1000))
}

func TestCreateCoupon(t *testing.T) {
	store := servicestest.NewMemoryStore()
	svc := newTestCouponService(store, time.Now())

	coupon, err := svc.CreateCoupon(context.Background(), services.CreateCouponRequest{
		Code:            "early-bird",
		OfferingID:      1,
		DiscountPercent: ptr(15.0),
		MaxUses:         ptr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, "EARLY-BIRD", coupon.Code)
	assert.True(t, coupon.IsActive)

	_, err = svc.CreateCoupon(context.Background(), services.CreateCouponRequest{
		Code: "BOTH", OfferingID: 1, DiscountPercent: ptr(5.0), DiscountAmount: ptr(int64(1000)),
	})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	from := time.Now()
	_, err = svc.CreateCoupon(context.Background(), services.CreateCouponRequest{
		Code: "BACKWARDS", OfferingID: 1, DiscountPercent: ptr(5.0), ValidFrom: &from, ValidUntil: ptr(from.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = svc.CreateCoupon(context.Background(), services.CreateCouponRequest{Code: "no spaces", OfferingID: 1})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestDeactivateExpiredCoupons(t *testing.T) {
	now := time.Now()
	store := servicestest.NewMemoryStore()
	expired := store.AddCoupon(model.DiscountCoupon{Code: "GONE", OfferingID: 1, IsActive: true, ValidUntil: ptr(now.Add(-time.Hour))})
	live := store.AddCoupon(model.DiscountCoupon{Code: "LIVE", OfferingID: 1, IsActive: true, ValidUntil: ptr(now.Add(time.Hour))})
	svc := newTestCouponService(store, now)

	n, err := svc.DeactivateExpiredCoupons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, store.Coupon(expired.ID).IsActive)
	assert.True(t, store.Coupon(live.ID).IsActive)
}
