package services

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidCoupon     = "INVALID_COUPON"
	CodeNotFound          = "NOT_FOUND"
	CodeCouponExpired     = "COUPON_EXPIRED"
	CodeCouponNotYetValid = "COUPON_NOT_YET_VALID"
	CodeUsageLimitReached = "COUPON_USAGE_LIMIT"
	CodeForbidden         = "FORBIDDEN"
	CodeAlreadyPaid       = "ALREADY_PAID"
	CodeBelowMinimum      = "BELOW_MINIMUM"
	CodeProviderError     = "PROVIDER_ERROR"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidCoupon     = errors.New("coupon not found")
	ErrNotFound          = errors.New("resource not found")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyPaid       = errors.New("invoice already paid")
	ErrBelowMinimum      = errors.New("amount below provider minimum")
	ErrProvider          = errors.New("payment provider error")
)

var sentinelCodes = map[error]string{
	ErrInvalidInput:      CodeInvalidInput,
	ErrInvalidAmount:     CodeInvalidInput,
	ErrInvalidCoupon:     CodeInvalidCoupon,
	ErrNotFound:          CodeNotFound,
	ErrCouponExpired:     CodeCouponExpired,
	ErrCouponNotYetValid: CodeCouponNotYetValid,
	ErrUsageLimitReached: CodeUsageLimitReached,
	ErrForbidden:         CodeForbidden,
	ErrAlreadyPaid:       CodeAlreadyPaid,
	ErrBelowMinimum:      CodeBelowMinimum,
	ErrProvider:          CodeProviderError,
}

// CheckoutError is a recoverable checkout failure with a message safe to show to users.
// Kind is one of the sentinel errors above, Err optionally keeps the underlying cause.
type CheckoutError struct {
	Kind    error
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Code returns the API error code for the failure
func (e *CheckoutError) Code() string {
	if code, ok := sentinelCodes[e.Kind]; ok {
		return code
	}
	return CodeInvalidInput
}

func (e *CheckoutError) Is(target error) bool {
	return e.Kind == target
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func newCheckoutError(kind error, message string) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: message}
}

func wrapCheckoutError(kind error, message string, err error) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: message, Err: err}
}

// AsCheckoutError extracts a CheckoutError from an error chain
func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
