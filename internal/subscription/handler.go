package subscription

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/apperror"
)

// Handler exposes subscription order endpoints. All routes require auth.
type Handler struct {
	svc *Service
}

// NewHandler constructs the subscription HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	Amount int64 `json:"amount"`
}

// Create handles POST /subscription/orders.
func (h *Handler) Create(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	order, intent, err := h.svc.Create(c.UserContext(), callerID, req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"order": order, "intent": intent})
}

type completeOrderRequest struct {
	Reference string `json:"reference"`
}

// Complete handles POST /subscription/orders/:orderId/complete.
func (h *Handler) Complete(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	var req completeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}

	order, err := h.svc.Status(c.UserContext(), orderID)
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(c, order.UserID); err != nil {
		return err
	}

	order, err = h.svc.Complete(c.UserContext(), orderID, req.Reference)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"order": order})
}

// Status handles GET /subscription/orders/:orderId.
func (h *Handler) Status(c *fiber.Ctx) error {
	order, err := h.svc.Status(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return err
	}
	if err := requireOwnerOrAdmin(c, order.UserID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"order": order})
}

// Check handles GET /subscription/status for the authenticated user.
func (h *Handler) Check(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	subscribed, err := h.svc.CheckSubscription(c.UserContext(), callerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"subscribed": subscribed})
}

func requireOwnerOrAdmin(c *fiber.Ctx, ownerID string) error {
	callerID, _ := c.Locals("user_id").(string)
	isAdmin, _ := c.Locals("is_admin").(bool)
	if callerID != ownerID && !isAdmin {
		return apperror.Authorization("You are not allowed to access this order")
	}
	return nil
}
