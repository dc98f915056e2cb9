package coupon

import (
	"errors"

	"github.com/code-centre/tech-centre-api/handlers"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/code-centre/tech-centre-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CouponHandler handles coupon validation and administration
type CouponHandler struct {
	coupons   *services.CouponService
	validator *validation.Validator
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(coupons *services.CouponService) *CouponHandler {
	return &CouponHandler{
		coupons:   coupons,
		validator: validation.NewValidator(),
	}
}

// ValidateCouponRequest represents the request body for validating a coupon
type ValidateCouponRequest struct {
	Code       string `json:"code" validate:"required,max=40"`
	OfferingID uint   `json:"offering_id" validate:"required,min=1"`
	Subtotal   int64  `json:"subtotal" validate:"min=0"`
}

// ValidateCoupon handles POST /api/v1/coupons/validate.
// An unusable coupon is a successful response with valid=false.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req ValidateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.coupons.ValidateCoupon(c.UserContext(), req.Code, req.OfferingID, req.Subtotal)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to validate coupon")
	}

	return response.Success(c, result)
}

// CreateCoupon handles POST /api/v1/admin/coupons
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req services.CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Description = validation.SanitizeString(req.Description)

	coupon, err := h.coupons.CreateCoupon(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "Coupon with this code already exists for the offering")
		}
		return handlers.RespondError(c, err, "Failed to create coupon")
	}

	return response.Created(c, coupon)
}
