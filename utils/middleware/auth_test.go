package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/code-centre/tech-centre-api/utils/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type revokedSet struct {
	ids map[string]bool
	err error
}

func (r *revokedSet) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.ids[jti], nil
}

func newTestJWT() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{Secret: testSecret, Issuer: "tech-centre-api", Expiry: time.Hour})
}

func newAuthApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/me", m.Required(), func(c *fiber.Ctx) error {
		id, _ := GetUserID(c)
		role, _ := GetUserRole(c)
		return c.JSON(fiber.Map{"user_id": id, "role": role})
	})
	app.Get("/admin", m.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRequired_ValidStudentToken(t *testing.T) {
	jwtManager := newTestJWT()
	token, _, err := jwtManager.GenerateAccessToken(42, "ana@example.com", auth.RoleStudent)
	require.NoError(t, err)

	status, body := doGet(t, newAuthApp(NewAuthMiddleware(jwtManager, nil)), "/me", token)

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"user_id":42,"role":"student"}`, body)
}

func TestRequired_RejectsMissingAndMalformedHeaders(t *testing.T) {
	app := newAuthApp(NewAuthMiddleware(newTestJWT(), nil))

	status, body := doGet(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "Missing authorization token")

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequired_RejectsForeignSignature(t *testing.T) {
	other := auth.NewJWTManager(auth.JWTConfig{Secret: "another-secret", Issuer: "tech-centre-api"})
	token, _, err := other.GenerateAccessToken(42, "ana@example.com", auth.RoleStudent)
	require.NoError(t, err)

	status, body := doGet(t, newAuthApp(NewAuthMiddleware(newTestJWT(), nil)), "/me", token)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "Invalid token")
}

func TestRequired_RejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	claims := auth.Claims{
		UserID: 42,
		Role:   auth.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired",
			Issuer:    "tech-centre-api",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	status, body := doGet(t, newAuthApp(NewAuthMiddleware(newTestJWT(), nil)), "/me", token)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "Token has expired")
}

func TestRequired_RejectsRevokedToken(t *testing.T) {
	jwtManager := newTestJWT()
	token, jti, err := jwtManager.GenerateAccessToken(42, "ana@example.com", auth.RoleStudent)
	require.NoError(t, err)

	app := newAuthApp(NewAuthMiddleware(jwtManager, &revokedSet{ids: map[string]bool{jti: true}}))
	status, body := doGet(t, app, "/me", token)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "revoked")
}

func TestRequired_RevocationLookupFailure(t *testing.T) {
	jwtManager := newTestJWT()
	token, _, err := jwtManager.GenerateAccessToken(42, "ana@example.com", auth.RoleStudent)
	require.NoError(t, err)

	app := newAuthApp(NewAuthMiddleware(jwtManager, &revokedSet{err: errors.New("redis down")}))
	status, _ := doGet(t, app, "/me", token)

	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestRequireAdmin(t *testing.T) {
	jwtManager := newTestJWT()
	app := newAuthApp(NewAuthMiddleware(jwtManager, nil))

	student, _, err := jwtManager.GenerateAccessToken(42, "ana@example.com", auth.RoleStudent)
	require.NoError(t, err)
	status, _ := doGet(t, app, "/admin", student)
	assert.Equal(t, fiber.StatusForbidden, status)

	admin, _, err := jwtManager.GenerateAccessToken(1, "finance@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	status, body := doGet(t, app, "/admin", admin)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestValidateToken_RejectsUnknownRole(t *testing.T) {
	jwtManager := newTestJWT()
	token, _, err := jwtManager.GenerateAccessToken(42, "ana@example.com", "super_admin")
	require.NoError(t, err)

	_, err = jwtManager.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}
