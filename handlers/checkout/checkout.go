package checkout

import (
	"time"

	"github.com/code-centre/tech-centre-api/handlers"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/code-centre/tech-centre-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles pricing and enrollment checkout requests
type CheckoutHandler struct {
	checkout  *services.CheckoutService
	validator *validation.Validator
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:  checkout,
		validator: validation.NewValidator(),
	}
}

// InstallmentPreviewRequest represents the request body for an installment preview
type InstallmentPreviewRequest struct {
	Total        int64      `json:"total" validate:"required,gt=0"`
	Count        int        `json:"count" validate:"required,min=1,max=60"`
	FirstDueDate *time.Time `json:"first_due_date"`
}

// Quote handles POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(c *fiber.Ctx) error {
	var req services.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	quote, err := h.checkout.Quote(c.UserContext(), req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to calculate price")
	}

	return response.Success(c, quote)
}

// PreviewInstallments handles POST /api/v1/checkout/installments
func (h *CheckoutHandler) PreviewInstallments(c *fiber.Ctx) error {
	var req InstallmentPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	firstDue := time.Now().UTC()
	if req.FirstDueDate != nil {
		firstDue = req.FirstDueDate.UTC()
	}

	schedule := services.CalculateInstallments(req.Total, req.Count, firstDue)
	return response.Success(c, fiber.Map{
		"total":        req.Total,
		"installments": schedule,
	})
}

// CreateEnrollment handles POST /api/v1/checkout/enrollments
func (h *CheckoutHandler) CreateEnrollment(c *fiber.Ctx) error {
	studentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.checkout.Checkout(c.UserContext(), studentID, req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create enrollment")
	}

	return response.Created(c, result)
}
