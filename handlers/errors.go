package handlers

import (
	"log"
	"strconv"

	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// RespondError writes the response for an error returned by a checkout service.
// Unexpected errors are logged and hidden behind fallback.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	ce, ok := services.AsCheckoutError(err)
	if !ok {
		log.Printf("[CHECKOUT] %s %s: %v", c.Method(), c.Path(), err)
		return response.InternalServerError(c, fallback)
	}

	code := ce.Code()
	switch code {
	case services.CodeNotFound:
		return response.Error(c, fiber.StatusNotFound, ce.Message, code)
	case services.CodeForbidden:
		return response.Error(c, fiber.StatusForbidden, ce.Message, code)
	case services.CodeAlreadyPaid:
		return response.Error(c, fiber.StatusConflict, ce.Message, code)
	case services.CodeProviderError:
		log.Printf("[CHECKOUT] provider failure on %s %s: %v", c.Method(), c.Path(), ce.Err)
		return response.BadGateway(c, ce.Message, code)
	case services.CodeInvalidInput:
		return response.Error(c, fiber.StatusBadRequest, ce.Message, code)
	default:
		return response.UnprocessableEntity(c, ce.Message, code)
	}
}

// ParseID reads a positive numeric route parameter
func ParseID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
