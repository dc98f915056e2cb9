package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, response.Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondError(c, err, "Something went wrong")
	})

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, testErr)

	var body response.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRespondError_MapsCheckoutCodes(t *testing.T) {
	tests := []struct {
		kind   error
		status int
		code   string
	}{
		{services.ErrNotFound, fiber.StatusNotFound, services.CodeNotFound},
		{services.ErrForbidden, fiber.StatusForbidden, services.CodeForbidden},
		{services.ErrAlreadyPaid, fiber.StatusConflict, services.CodeAlreadyPaid},
		{services.ErrProvider, fiber.StatusBadGateway, services.CodeProviderError},
		{services.ErrInvalidInput, fiber.StatusBadRequest, services.CodeInvalidInput},
		{services.ErrInvalidAmount, fiber.StatusBadRequest, services.CodeInvalidInput},
		{services.ErrBelowMinimum, fiber.StatusUnprocessableEntity, services.CodeBelowMinimum},
		{services.ErrCouponExpired, fiber.StatusUnprocessableEntity, services.CodeCouponExpired},
		{services.ErrUsageLimitReached, fiber.StatusUnprocessableEntity, services.CodeUsageLimitReached},
		{services.ErrInvalidCoupon, fiber.StatusUnprocessableEntity, services.CodeInvalidCoupon},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("handler: %w", &services.CheckoutError{Kind: tt.kind, Message: "user facing"})

			status, body := respond(t, err)

			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, "user facing", body.Error.Message)
		})
	}
}

func TestRespondError_HidesUnexpectedErrors(t *testing.T) {
	status, body := respond(t, errors.New("pq: connection refused"))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Something went wrong", body.Error.Message)
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, ok := ParseID(c, "id")
		if !ok {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendString(fmt.Sprint(id))
	})

	for path, want := range map[string]int{
		"/items/42":  fiber.StatusOK,
		"/items/0":   fiber.StatusBadRequest,
		"/items/-3":  fiber.StatusBadRequest,
		"/items/abc": fiber.StatusBadRequest,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
