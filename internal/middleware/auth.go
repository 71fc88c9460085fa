package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/session"
)

// RequireAuth validates the session token from the access_token cookie or a
// bearer header, rejects revoked tokens, and stores the caller identity in
// request locals.
func RequireAuth(sessions *session.Issuer, denylist *session.Denylist, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(session.CookieName)
		if token == "" {
			authz := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("Bearer "):])
			}
		}
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}

		revoked, err := denylist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			// Fail open on cache errors; the token signature already checked out.
			logger.Warn("denylist lookup failed", "error", err)
		} else if revoked {
			return fiber.NewError(http.StatusUnauthorized, "token revoked")
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("is_admin", claims.IsAdmin)
		return c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("is_admin").(bool)
		if !isAdmin {
			return fiber.NewError(http.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}
