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

type checkoutFixture struct {
	store    *servicestest.MemoryStore
	checkout *services.CheckoutService
	cohort   model.Cohort
}

func newCheckoutFixture(t *testing.T) checkoutFixture {
	t.Helper()
	store := servicestest.NewMemoryStore()
	cohort := store.AddCohort(bootcamp())

	coupons := services.NewCouponService(store, discardLogger())
	settlement := services.NewSettlementService(store, &servicestest.Provider{}, nil, nil, services.SettlementConfig{}, discardLogger())
	checkout := services.NewCheckoutService(store, services.NewPriceCalculator(10), coupons, settlement, discardLogger())

	return checkoutFixture{store: store, checkout: checkout, cohort: cohort}
}

func TestQuoteFullPayment(t *testing.T) {
	f := newCheckoutFixture(t)

	quote, err := f.checkout.Quote(context.Background(), services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.FullPayment()})
	require.NoError(t, err)
	assert.Equal(t, int64(900000), quote.Calculation.Total)
	assert.Equal(t, "Backend Bootcamp", quote.OfferingName)
	assert.Nil(t, quote.Coupon)
}

func TestQuoteAppliesCouponAfterMethodDiscount(t *testing.T) {
	f := newCheckoutFixture(t)
	f.store.AddCoupon(model.DiscountCoupon{Code: "PROMO20", OfferingID: f.cohort.OfferingID, DiscountPercent: ptr(20.0), IsActive: true})

	quote, err := f.checkout.Quote(context.Background(), services.QuoteRequest{
		CohortID:      f.cohort.ID,
		PaymentMethod: services.FullPayment(),
		CouponCode:    "promo20",
	})
	require.NoError(t, err)
	require.NotNil(t, quote.Coupon)
	assert.True(t, quote.Coupon.Valid)
	// 20% of 900,000
	assert.Equal(t, int64(180000), quote.Calculation.CouponDiscount)
	assert.Equal(t, int64(720000), quote.Calculation.Total)
	require.NotNil(t, quote.Calculation.Savings)
	assert.Equal(t, int64(280000), *quote.Calculation.Savings)
}

func TestQuoteInvalidCouponLeavesPriceUntouched(t *testing.T) {
	f := newCheckoutFixture(t)

	quote, err := f.checkout.Quote(context.Background(), services.QuoteRequest{
		CohortID:      f.cohort.ID,
		PaymentMethod: services.Installments(2),
		CouponCode:    "NOPE",
	})
	require.NoError(t, err)
	require.NotNil(t, quote.Coupon)
	assert.False(t, quote.Coupon.Valid)
	assert.Equal(t, services.CodeInvalidCoupon, quote.Coupon.ErrorCode)
	assert.Equal(t, int64(1000000), quote.Calculation.Total)
}

func TestQuoteErrors(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Quote(context.Background(), services.QuoteRequest{CohortID: 9999, PaymentMethod: services.FullPayment()})
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.checkout.Quote(context.Background(), services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.Installments(12)})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	inactive := bootcamp()
	inactive.IsActive = false
	closed := f.store.AddCohort(inactive)
	_, err = f.checkout.Quote(context.Background(), services.QuoteRequest{CohortID: closed.ID, PaymentMethod: services.FullPayment()})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestCheckoutCreatesScheduleAndRedeemsCoupon(t *testing.T) {
	f := newCheckoutFixture(t)
	coupon := f.store.AddCoupon(model.DiscountCoupon{
		Code: "FLAT", OfferingID: f.cohort.OfferingID, DiscountAmount: ptr(int64(100000)), IsActive: true, MaxUses: ptr(5),
	})
	first := date(2024, time.March, 1)

	result, err := f.checkout.Checkout(context.Background(), 7, services.CheckoutRequest{
		QuoteRequest: services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.Installments(3), CouponCode: "FLAT"},
		FirstDueDate: &first,
	})
	require.NoError(t, err)

	e := result.Enrollment
	assert.Equal(t, int64(900000), e.AgreedTotal)
	assert.Equal(t, 3, e.InstallmentCount)
	require.NotNil(t, e.CouponID)
	assert.Equal(t, coupon.ID, *e.CouponID)
	require.Len(t, e.Invoices, 3)
	assert.Equal(t, "Payment 1 of 3 - Backend Bootcamp", e.Invoices[0].Label)
	assert.Equal(t, 1, f.store.Coupon(coupon.ID).CurrentUses)
}

func TestCheckoutFullPaymentSingleInvoice(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.checkout.Checkout(context.Background(), 7, services.CheckoutRequest{
		QuoteRequest: services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.FullPayment()},
	})
	require.NoError(t, err)
	require.Len(t, result.Enrollment.Invoices, 1)
	assert.Equal(t, int64(900000), result.Enrollment.Invoices[0].Amount)
}

func TestCheckoutRejectsInvalidCoupon(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Checkout(context.Background(), 7, services.CheckoutRequest{
		QuoteRequest: services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.FullPayment(), CouponCode: "GHOST"},
	})
	assert.ErrorIs(t, err, services.ErrInvalidCoupon)
	assert.Equal(t, 0, f.store.EnrollmentCount())
}

func TestCheckoutRequiresStudent(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Checkout(context.Background(), 0, services.CheckoutRequest{
		QuoteRequest: services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.FullPayment()},
	})
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestCheckoutRejectsCouponCoveringFullPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	coupon := f.store.AddCoupon(model.DiscountCoupon{Code: "FREE", OfferingID: f.cohort.OfferingID, DiscountPercent: ptr(100.0), IsActive: true})

	quote, err := f.checkout.Quote(context.Background(), services.QuoteRequest{
		CohortID: f.cohort.ID, PaymentMethod: services.FullPayment(), CouponCode: "FREE",
	})
	require.NoError(t, err)
	assert.True(t, quote.Coupon.Valid)
	assert.Equal(t, int64(0), quote.Calculation.Total)

	_, err = f.checkout.Checkout(context.Background(), 7, services.CheckoutRequest{
		QuoteRequest: services.QuoteRequest{CohortID: f.cohort.ID, PaymentMethod: services.FullPayment(), CouponCode: "FREE"},
	})
	require.ErrorIs(t, err, services.ErrInvalidCoupon)

	ce, ok := services.AsCheckoutError(err)
	require.True(t, ok)
	assert.Equal(t, services.CodeInvalidCoupon, ce.Code())
	assert.Contains(t, ce.Message, "covers the full price")
	assert.Equal(t, 0, f.store.EnrollmentCount())
	assert.Equal(t, 0, f.store.Coupon(coupon.ID).CurrentUses)
}
