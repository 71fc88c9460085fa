package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/middleware"
)

// RegisterAdminRoutes wires admin-only endpoints such as the activity trail.
func RegisterAdminRoutes(r fiber.Router, recorder audit.Recorder, requireAuth fiber.Handler) {
	group := r.Group("/admin", requireAuth, middleware.RequireAdmin())
	group.Get("/activity", func(c *fiber.Ctx) error {
		offset := c.QueryInt("startIndex", 0)
		limit := c.QueryInt("limit", 50)
		entries, err := recorder.List(c.UserContext(), offset, limit)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"activity": entries})
	})
}
