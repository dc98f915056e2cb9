package payment

import (
	"github.com/code-centre/tech-centre-api/handlers"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/services/payments"
	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler exposes provider lookups
type PaymentHandler struct {
	settlement *services.SettlementService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(settlement *services.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

// GetTransactionStatus handles GET /api/v1/payments/transactions/:id.
// Students only see transactions paying their own invoices.
func (h *PaymentHandler) GetTransactionStatus(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var (
		tx  *payments.Transaction
		err error
	)
	if claims.IsAdmin() {
		tx, err = h.settlement.GetTransactionStatus(c.UserContext(), c.Params("id"))
	} else {
		tx, err = h.settlement.GetTransactionStatusForStudent(c.UserContext(), c.Params("id"), claims.UserID)
	}
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch transaction")
	}

	return response.Success(c, tx)
}
