package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/auth"
)

// RegisterAuthRoutes wires the authentication endpoints. rateLimit builds a
// per-scope limiter for the credential-sensitive routes.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimit func(scope string) fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", rateLimit("signup"), h.Signup)
	group.Post("/verify-email", h.VerifyEmail)
	group.Post("/signin", rateLimit("signin"), h.Signin)
	group.Post("/verify-signin-otp", h.VerifySigninOTP)
	group.Post("/request-password-reset", rateLimit("reset"), h.RequestPasswordReset)
	group.Post("/reset-password", h.ResetPassword)
	group.Post("/change-expired-password", h.ChangeExpiredPassword)
	group.Post("/google", h.Google)
	group.Post("/logout", h.Logout)
}
