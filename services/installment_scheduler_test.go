package services_test

import (
	"testing"
	"time"

	"github.com/code-centre/tech-centre-api/services"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateInstallmentsRemainderOnLast(t *testing.T) {
	schedule := services.CalculateInstallments(100, 3, date(2024, time.January, 31))
	require.Len(t, schedule, 3)

	assert.Equal(t, []int64{33, 33, 34}, lo.Map(schedule, func(i services.Installment, _ int) int64 { return i.Amount }))
	assert.Equal(t, date(2024, time.January, 31), schedule[0].DueDate)
	assert.Equal(t, date(2024, time.February, 29), schedule[1].DueDate)
	assert.Equal(t, date(2024, time.March, 31), schedule[2].DueDate)
	assert.Equal(t, []int{1, 2, 3}, lo.Map(schedule, func(i services.Installment, _ int) int { return i.Number }))
}

func TestCalculateInstallmentsEvenSplit(t *testing.T) {
	schedule := services.CalculateInstallments(1200000, 4, date(2024, time.March, 1))
	require.Len(t, schedule, 4)

	for i, inst := range schedule {
		assert.Equal(t, int64(300000), inst.Amount)
		assert.Equal(t, date(2024, time.March+time.Month(i), 1), inst.DueDate)
	}
}

func TestCalculateInstallmentsSumsToTotal(t *testing.T) {
	start := date(2025, time.August, 30)
	for _, total := range []int64{0, 1, 7, 100, 999999, 1234567} {
		for count := 1; count <= 12; count++ {
			schedule := services.CalculateInstallments(total, count, start)
			require.Len(t, schedule, count)
			sum := lo.SumBy(schedule, func(i services.Installment) int64 { return i.Amount })
			assert.Equal(t, total, sum, "total=%d count=%d", total, count)
			for _, inst := range schedule {
				assert.GreaterOrEqual(t, inst.Amount, int64(0))
			}
		}
	}
}

func TestCalculateInstallmentsSingle(t *testing.T) {
	schedule := services.CalculateInstallments(500, 1, date(2025, time.May, 5))
	require.Len(t, schedule, 1)
	assert.Equal(t, int64(500), schedule[0].Amount)

	schedule = services.CalculateInstallments(500, 0, date(2025, time.May, 5))
	require.Len(t, schedule, 1)
	assert.Equal(t, int64(500), schedule[0].Amount)
}

func TestAddCalendarMonthsDoesNotDrift(t *testing.T) {
	start := date(2024, time.January, 31)
	assert.Equal(t, date(2024, time.February, 29), services.AddCalendarMonths(start, 1))
	assert.Equal(t, date(2024, time.April, 30), services.AddCalendarMonths(start, 3))
	assert.Equal(t, date(2025, time.January, 31), services.AddCalendarMonths(start, 12))
	assert.Equal(t, date(2025, time.February, 28), services.AddCalendarMonths(start, 13))
}

func TestBuildInvoices(t *testing.T) {
	schedule := services.CalculateInstallments(1000, 2, date(2025, time.June, 1))
	invoices := services.BuildInvoices(9, schedule, services.InvoiceContext{Description: "Data Bootcamp", ProductType: "program", CohortID: 3})

	require.Len(t, invoices, 2)
	assert.Equal(t, uint(9), invoices[0].EnrollmentID)
	assert.Equal(t, "Payment 1 of 2 - Data Bootcamp", invoices[0].Label)
	assert.Equal(t, "Payment 2 of 2 - Data Bootcamp", invoices[1].Label)
	assert.Equal(t, "pending", string(invoices[1].Status))
	assert.Equal(t, 2, invoices[1].Meta["total_payments"])
	assert.Equal(t, 2, invoices[1].Meta["payment_number"])
	assert.Equal(t, uint(3), invoices[0].Meta["cohort_id"])
}
