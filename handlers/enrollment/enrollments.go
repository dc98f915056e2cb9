package enrollment

import (
	"time"

	"github.com/code-centre/tech-centre-api/handlers"
	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/code-centre/tech-centre-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// EnrollmentHandler handles enrollment and invoice schedule requests
type EnrollmentHandler struct {
	settlement *services.SettlementService
	validator  *validation.Validator
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(settlement *services.SettlementService) *EnrollmentHandler {
	return &EnrollmentHandler{
		settlement: settlement,
		validator:  validation.NewValidator(),
	}
}

// CreateEnrollmentRequest represents the back office request for a negotiated enrollment
type CreateEnrollmentRequest struct {
	StudentID        uint       `json:"student_id" validate:"required,min=1"`
	CohortID         uint       `json:"cohort_id" validate:"required,min=1"`
	AgreedTotal      int64      `json:"agreed_total" validate:"required,gt=0"`
	InstallmentCount int        `json:"installment_count" validate:"required,min=1,max=60"`
	FirstDueDate     *time.Time `json:"first_due_date"`
	Description      string     `json:"description" validate:"omitempty,max=255"`
	ProductType      string     `json:"product_type" validate:"omitempty,max=50"`
}

// ListInvoices handles GET /api/v1/enrollments/:id/invoices
func (h *EnrollmentHandler) ListInvoices(c *fiber.Ctx) error {
	studentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollmentID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	invoices, err := h.settlement.ListInvoices(c.UserContext(), enrollmentID, studentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch invoices")
	}

	return response.Success(c, fiber.Map{
		"enrollment_id": enrollmentID,
		"invoices":      invoices,
		"total":         lo.SumBy(invoices, func(inv model.Invoice) int64 { return inv.Amount }),
	})
}

// CreateEnrollment handles POST /api/v1/admin/enrollments
func (h *EnrollmentHandler) CreateEnrollment(c *fiber.Ctx) error {
	var req CreateEnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var firstDue time.Time
	if req.FirstDueDate != nil {
		firstDue = *req.FirstDueDate
	}

	enrollment, err := h.settlement.CreateEnrollmentWithSchedule(c.UserContext(), services.EnrollmentRequest{
		StudentID:        req.StudentID,
		CohortID:         req.CohortID,
		AgreedTotal:      req.AgreedTotal,
		InstallmentCount: req.InstallmentCount,
		FirstDueDate:     firstDue,
		InvoiceContext: services.InvoiceContext{
			Description: validation.SanitizeString(req.Description),
			ProductType: req.ProductType,
			CohortID:    req.CohortID,
		},
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create enrollment")
	}

	return response.Created(c, enrollment)
}

// CancelEnrollment handles POST /api/v1/admin/enrollments/:id/cancel
func (h *EnrollmentHandler) CancelEnrollment(c *fiber.Ctx) error {
	enrollmentID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	enrollment, err := h.settlement.CancelEnrollment(c.UserContext(), enrollmentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to cancel enrollment")
	}

	return response.SuccessWithMessage(c, "Enrollment cancelled", enrollment)
}

// ListOrphaned handles GET /api/v1/admin/enrollments/orphaned?older_than=10m
func (h *EnrollmentHandler) ListOrphaned(c *fiber.Ctx) error {
	olderThan, err := time.ParseDuration(c.Query("older_than", "10m"))
	if err != nil || olderThan < 0 {
		return response.BadRequest(c, "older_than must be a duration such as 10m or 2h")
	}

	enrollments, err := h.settlement.FindEnrollmentsWithoutInvoices(c.UserContext(), olderThan)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch orphaned enrollments")
	}

	return response.Success(c, fiber.Map{
		"count":       len(enrollments),
		"enrollments": enrollments,
	})
}
