package services

import (
	"fmt"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"gorm.io/datatypes"
)

// Installment is one (amount, due date) pair of a payment schedule
type Installment struct {
	Number  int       `json:"number"`
	Amount  int64     `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// CalculateInstallments splits total into count parts due one calendar month apart.
// Every part but the last is floor(total/count); the last absorbs the remainder,
// so the amounts always sum to total.
func CalculateInstallments(total int64, count int, firstDueDate time.Time) []Installment {
	total = max(total, 0)

	if count <= 1 {
		return []Installment{{Number: 1, Amount: total, DueDate: firstDueDate}}
	}

	base := total / int64(count)
	schedule := make([]Installment, 0, count)
	for i := 0; i < count; i++ {
		amount := base
		if i == count-1 {
			amount = total - base*int64(count-1)
		}
		schedule = append(schedule, Installment{
			Number:  i + 1,
			Amount:  max(amount, 0),
			DueDate: AddCalendarMonths(firstDueDate, i),
		})
	}
	return schedule
}

// AddCalendarMonths moves t forward by months, clamping the day to the end of
// shorter months (Jan 31 + 1 month = Feb 28/29).
func AddCalendarMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(firstOfTarget); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// InvoiceContext describes what the invoices are for
type InvoiceContext struct {
	Description string
	ProductType string
	CohortID    uint
}

// BuildInvoices materializes one pending invoice per installment
func BuildInvoices(enrollmentID uint, schedule []Installment, ic InvoiceContext) []model.Invoice {
	invoices := make([]model.Invoice, 0, len(schedule))
	for _, inst := range schedule {
		invoices = append(invoices, model.Invoice{
			EnrollmentID: enrollmentID,
			Label:        installmentLabel(inst.Number, len(schedule), ic.Description),
			Amount:       inst.Amount,
			DueDate:      inst.DueDate,
			Status:       model.InvoiceStatusPending,
			Meta: datatypes.JSONMap{
				"total_payments": len(schedule),
				"payment_number": inst.Number,
				"product_type":   ic.ProductType,
				"cohort_id":      ic.CohortID,
			},
		})
	}
	return invoices
}

func installmentLabel(number, total int, description string) string {
	label := fmt.Sprintf("Payment %d of %d", number, total)
	if description != "" {
		label += " - " + description
	}
	return label
}
