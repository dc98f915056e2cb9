package services

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/jung-kurt/gofpdf"
)

// InvoiceDocument is everything printed on an invoice PDF
type InvoiceDocument struct {
	Invoice    *model.Invoice
	Enrollment *model.Enrollment
	Issuer     string
	Currency   string
	IssuedAt   time.Time
}

// RenderInvoicePDF renders one installment invoice as an A4 PDF
func RenderInvoicePDF(doc InvoiceDocument) ([]byte, error) {
	if doc.Invoice == nil {
		return nil, newCheckoutError(ErrInvalidInput, "invoice is required")
	}
	if doc.IssuedAt.IsZero() {
		doc.IssuedAt = time.Now()
	}
	if doc.Issuer == "" {
		doc.Issuer = "Tech Centre"
	}

	inv := doc.Invoice
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 8, doc.Issuer)
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 24)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(15)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 6, fmt.Sprintf("Invoice Number: %06d", inv.ID))
	pdf.Cell(60, 6, fmt.Sprintf("Date: %s", doc.IssuedAt.Format("January 2, 2006")))
	pdf.Ln(6)
	pdf.Cell(60, 6, fmt.Sprintf("Due Date: %s", inv.DueDate.Format("2006-01-02")))
	pdf.Cell(60, 6, fmt.Sprintf("Currency: %s", doc.Currency))
	pdf.Ln(6)
	pdf.Cell(60, 6, fmt.Sprintf("Status: %s", strings.ToUpper(string(inv.Status))))
	if inv.PaidAt != nil {
		pdf.Cell(60, 6, fmt.Sprintf("Paid: %s", inv.PaidAt.Format("2006-01-02")))
	}
	pdf.Ln(15)

	if doc.Enrollment != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Bill To:")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 5, fmt.Sprintf("Student #%d, enrollment #%d", doc.Enrollment.StudentID, doc.Enrollment.ID))
		pdf.Ln(5)
		if doc.Enrollment.Cohort.Name != "" {
			pdf.Cell(0, 5, doc.Enrollment.Cohort.Name)
			pdf.Ln(5)
		}
		pdf.Ln(10)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(140, 8, "Description")
	pdf.Cell(40, 8, "Amount")
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(140, 6, inv.Label)
	pdf.Cell(40, 6, FormatAmount(inv.Amount))
	pdf.Ln(20)

	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(110, pdf.GetY(), 90, 15, "F")
	pdf.SetFont("Arial", "B", 14)
	pdf.SetX(115)
	pdf.Cell(35, 15, "Amount Due:")
	due := inv.Amount
	if inv.IsPaid() {
		due = 0
	}
	pdf.Cell(40, 15, fmt.Sprintf("%s %s", doc.Currency, FormatAmount(due)))
	pdf.Ln(20)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatAmount prints a whole-unit amount with thousands separators, e.g. 1,200,000
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
