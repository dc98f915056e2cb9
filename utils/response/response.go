package response

import (
	"github.com/code-centre/tech-centre-api/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// Response is the envelope every API endpoint answers with
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries the machine readable code clients branch on.
// RequestID matches the X-Request-ID header so support can find the log line.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func send(c *fiber.Ctx, status int, body Response) error {
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, detail ErrorDetail) error {
	if id, ok := c.Locals("requestid").(string); ok {
		detail.RequestID = id
	}
	return send(c, status, Response{Success: false, Error: &detail})
}

// Success answers 200 with data
func Success(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage answers 200 with data and a human readable message
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created answers 201 with the created resource
func Created(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusCreated, Response{Success: true, Message: "Resource created successfully", Data: data})
}

// Error answers status with an error code
func Error(c *fiber.Ctx, status int, message string, code string) error {
	return fail(c, status, ErrorDetail{Code: code, Message: message})
}

// ValidationError answers 400 INVALID_INPUT with one line per rejected field
func ValidationError(c *fiber.Ctx, err error) error {
	return fail(c, fiber.StatusBadRequest, ErrorDetail{
		Code:    "INVALID_INPUT",
		Message: "Validation failed",
		Details: validation.Summary(err),
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return Error(c, fiber.StatusUnauthorized, message, "UNAUTHORIZED")
}

func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "You do not have access to this resource"
	}
	return Error(c, fiber.StatusForbidden, message, "FORBIDDEN")
}

func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message, "CONFLICT")
}

// UnprocessableEntity answers 422 for well formed requests a business rule rejected
func UnprocessableEntity(c *fiber.Ctx, message string, code string) error {
	return Error(c, fiber.StatusUnprocessableEntity, message, code)
}

// BadGateway answers 502 when the payment provider failed
func BadGateway(c *fiber.Ctx, message string, code string) error {
	if message == "" {
		message = "The payment provider is unavailable"
	}
	return Error(c, fiber.StatusBadGateway, message, code)
}

func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// ServiceUnavailable answers 503 when a backing store is down
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return Error(c, fiber.StatusServiceUnavailable, message, "SERVICE_UNAVAILABLE")
}
