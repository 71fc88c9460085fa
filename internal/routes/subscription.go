package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/subscription"
)

// RegisterSubscriptionRoutes wires the subscription order endpoints.
func RegisterSubscriptionRoutes(r fiber.Router, h *subscription.Handler, requireAuth fiber.Handler) {
	group := r.Group("/subscription", requireAuth)
	group.Post("/orders", h.Create)
	group.Post("/orders/:orderId/complete", h.Complete)
	group.Get("/orders/:orderId", h.Status)
	group.Get("/status", h.Check)
}
