package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type method struct {
	Kind  string `json:"kind" validate:"required,oneof=full installments"`
	Count int    `json:"count,omitempty" validate:"omitempty,min=1,max=60"`
}

type quote struct {
	CohortID      uint   `json:"cohort_id" validate:"required,min=1"`
	PaymentMethod method `json:"payment_method"`
}

func TestSummary_UsesJSONFieldPaths(t *testing.T) {
	v := NewValidator()

	err := v.ValidateStruct(quote{PaymentMethod: method{Kind: "barter", Count: 99}})
	require.Error(t, err)

	assert.Equal(t,
		"cohort_id is required; payment_method.count must be at most 60; payment_method.kind must be one of: full, installments",
		Summary(err))
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateStruct(quote{CohortID: 3, PaymentMethod: method{Kind: "full"}}))
	assert.Nil(t, FormatValidationErrors(nil))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Backend cohort", SanitizeString("  Backend\x00 cohort \n"))
}
