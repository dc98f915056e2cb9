package services

import (
	"fmt"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/shopspring/decimal"
)

// DefaultFullPaymentDiscountPercent is the discount granted for paying the whole price upfront
const DefaultFullPaymentDiscountPercent = 10

// PaymentMethodSelection is either {kind: full} or {kind: installments, count: n}
type PaymentMethodSelection struct {
	Kind  string `json:"kind" validate:"required,oneof=full installments"`
	Count int    `json:"count,omitempty" validate:"omitempty,min=1,max=60"`
}

// FullPayment returns the full-payment selection
func FullPayment() PaymentMethodSelection {
	return PaymentMethodSelection{Kind: model.PaymentMethodFull}
}

// Installments returns an installment selection with n parts
func Installments(n int) PaymentMethodSelection {
	return PaymentMethodSelection{Kind: model.PaymentMethodInstallments, Count: n}
}

// IsInstallments reports whether the selection splits the price into more than one part
func (p PaymentMethodSelection) IsInstallments() bool {
	return p.Kind == model.PaymentMethodInstallments && p.Count > 1
}

// InstallmentCount is the number of invoices the selection produces
func (p PaymentMethodSelection) InstallmentCount() int {
	if p.IsInstallments() {
		return p.Count
	}
	return 1
}

// PriceParams is the input of the price calculator.
// Quantity defaults to 1 and CouponDiscountAmount to 0.
type PriceParams struct {
	BasePrice            int64
	PaymentMethod        PaymentMethodSelection
	Quantity             int
	CouponDiscountAmount int64
}

// PriceCalculation is the derived breakdown shown at checkout.
// InstallmentAmount is advisory only; CalculateInstallments decides the ledger amounts.
type PriceCalculation struct {
	Subtotal              int64  `json:"subtotal"`
	PaymentMethodDiscount int64  `json:"payment_method_discount"`
	CouponDiscount        int64  `json:"coupon_discount"`
	Total                 int64  `json:"total"`
	InstallmentCount      int    `json:"installment_count"`
	InstallmentAmount     *int64 `json:"installment_amount,omitempty"`
	Savings               *int64 `json:"savings,omitempty"`
}

// PriceCalculator computes checkout totals. It performs no I/O.
type PriceCalculator struct {
	fullPaymentDiscountPercent decimal.Decimal
}

// NewPriceCalculator creates a calculator with the given full-payment discount percentage
func NewPriceCalculator(fullPaymentDiscountPercent float64) *PriceCalculator {
	if fullPaymentDiscountPercent < 0 {
		fullPaymentDiscountPercent = 0
	}
	if fullPaymentDiscountPercent > 100 {
		fullPaymentDiscountPercent = 100
	}
	return &PriceCalculator{
		fullPaymentDiscountPercent: decimal.NewFromFloat(fullPaymentDiscountPercent),
	}
}

var defaultPriceCalculator = NewPriceCalculator(DefaultFullPaymentDiscountPercent)

// CalculatePrice runs the calculator with the default 10% full-payment discount
func CalculatePrice(params PriceParams) PriceCalculation {
	return defaultPriceCalculator.Calculate(params)
}

// Calculate produces the price breakdown for params
func (pc *PriceCalculator) Calculate(params PriceParams) PriceCalculation {
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	basePrice := max(params.BasePrice, 0)
	couponDiscount := max(params.CouponDiscountAmount, 0)

	subtotal := basePrice * int64(quantity)

	var methodDiscount int64
	if params.PaymentMethod.Kind == model.PaymentMethodFull {
		methodDiscount = percentOf(subtotal, pc.fullPaymentDiscountPercent)
	}
	finalPrice := subtotal - methodDiscount

	couponApplied := min(couponDiscount, finalPrice)
	total := max(finalPrice-couponApplied, 0)

	result := PriceCalculation{
		Subtotal:              subtotal,
		PaymentMethodDiscount: methodDiscount,
		CouponDiscount:        couponApplied,
		Total:                 total,
		InstallmentCount:      params.PaymentMethod.InstallmentCount(),
	}

	if params.PaymentMethod.IsInstallments() {
		perInstallment := total / int64(params.PaymentMethod.Count)
		result.InstallmentAmount = &perInstallment
	}

	if savings := subtotal - total; savings > 0 {
		result.Savings = &savings
	}

	return result
}

// percentOf returns round-half-up(amount × percent / 100)
func percentOf(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// ValidatePaymentMethod checks a selection against what the offering allows
func ValidatePaymentMethod(sel PaymentMethodSelection, offering *model.Offering) error {
	switch sel.Kind {
	case model.PaymentMethodFull:
	case model.PaymentMethodInstallments:
		if sel.Count < 2 {
			return newCheckoutError(ErrInvalidInput, "Installment plans need at least 2 payments")
		}
		if sel.Count > offering.MaxInstallments {
			return newCheckoutError(ErrInvalidInput,
				fmt.Sprintf("This program allows at most %d installments", offering.MaxInstallments))
		}
	default:
		return newCheckoutError(ErrInvalidInput, "Unknown payment method")
	}

	if !offering.AllowsPaymentMethod(sel.Kind) {
		return newCheckoutError(ErrInvalidInput, "Payment method not available for this program")
	}
	return nil
}
