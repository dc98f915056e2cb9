package invoice

import (
	"fmt"
	"time"

	"github.com/code-centre/tech-centre-api/handlers"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/code-centre/tech-centre-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// InvoiceHandler handles invoice payment requests
type InvoiceHandler struct {
	settlement *services.SettlementService
	validator  *validation.Validator
	issuer     string
}

// NewInvoiceHandler creates a new invoice handler. issuer is printed on invoice PDFs.
func NewInvoiceHandler(settlement *services.SettlementService, issuer string) *InvoiceHandler {
	return &InvoiceHandler{
		settlement: settlement,
		validator:  validation.NewValidator(),
		issuer:     issuer,
	}
}

// ReconcileRequest represents the request body for reconciling an invoice
type ReconcileRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=255"`
}

// RequestPaymentLink handles POST /api/v1/invoices/:id/payment-link
func (h *InvoiceHandler) RequestPaymentLink(c *fiber.Ctx) error {
	studentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	invoiceID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	result, err := h.settlement.RequestPaymentLinkForInvoice(c.UserContext(), invoiceID, studentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create payment link")
	}

	return response.Success(c, result)
}

// DownloadPDF handles GET /api/v1/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	studentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	invoiceID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	inv, enrollment, err := h.settlement.GetInvoice(c.UserContext(), invoiceID, studentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch invoice")
	}

	pdf, err := services.RenderInvoicePDF(services.InvoiceDocument{
		Invoice:    inv,
		Enrollment: enrollment,
		Issuer:     h.issuer,
		Currency:   h.settlement.Currency(),
		IssuedAt:   time.Now(),
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to render invoice")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoice-%d.pdf"`, inv.ID))
	return c.Send(pdf)
}

// MarkPaid handles POST /api/v1/admin/invoices/:id/mark-paid
func (h *InvoiceHandler) MarkPaid(c *fiber.Ctx) error {
	invoiceID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	inv, err := h.settlement.MarkInvoicePaid(c.UserContext(), invoiceID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to mark invoice as paid")
	}

	return response.SuccessWithMessage(c, "Invoice marked as paid", inv)
}

// Reconcile handles POST /api/v1/admin/invoices/:id/reconcile
func (h *InvoiceHandler) Reconcile(c *fiber.Ctx) error {
	invoiceID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.settlement.ReconcileInvoice(c.UserContext(), invoiceID, req.TransactionID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to reconcile invoice")
	}

	return response.Success(c, result)
}
