package auth

import (
	"context"
	"log"
	"time"

	"github.com/code-centre/tech-centre-api/utils/middleware"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// TokenRevoker revokes access tokens before they expire
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
}

// AuthHandler handles session requests. Tokens are issued by the identity service.
type AuthHandler struct {
	revoker TokenRevoker
}

// NewAuthHandler creates a new auth handler. revoker may be nil when Redis is not configured.
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.revoker == nil {
		return response.ServiceUnavailable(c, "Token revocation is not available")
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := h.revoker.RevokeToken(c.UserContext(), claims.ID, expiresAt); err != nil {
		log.Printf("[AUTH] failed to revoke token for user %d: %v", claims.UserID, err)
		return response.InternalServerError(c, "Failed to log out")
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
