package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/user"
)

// RegisterUserRoutes wires the authenticated account-management endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler, requireAuth fiber.Handler) {
	group := r.Group("/users", requireAuth)
	group.Get("/me", h.Me)
	group.Get("/", h.List)
	group.Post("/request-email-change", h.RequestEmailChange)
	group.Post("/confirm-email-change", h.ConfirmEmailChange)
	group.Put("/:userId", h.Update)
	group.Delete("/:userId", h.Delete)
}
