package user

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/apperror"
)

// Handler exposes the account-management endpoints. Route middleware is
// responsible for authentication; the handler enforces self-or-admin rules.
type Handler struct {
	svc *Service
}

// NewHandler constructs the account HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	u, err := h.svc.Get(c.UserContext(), callerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(u.Sanitized())
}

type updateRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	CurrentPassword string `json:"currentPassword"`
}

// Update handles PUT /users/:userId for the user themselves or an admin.
func (h *Handler) Update(c *fiber.Ctx) error {
	targetID := c.Params("userId")
	if err := requireSelfOrAdmin(c, targetID, "You are not allowed to update this user"); err != nil {
		return err
	}

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	u, err := h.svc.Update(c.UserContext(), targetID, UpdateInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(u.Sanitized())
}

type emailChangeRequest struct {
	Email string `json:"email"`
}

// RequestEmailChange handles POST /users/request-email-change for the
// authenticated user.
func (h *Handler) RequestEmailChange(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	var req emailChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.RequestEmailChange(c.UserContext(), callerID, req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Confirmation code sent to the new address",
	})
}

type emailConfirmRequest struct {
	OTP string `json:"otp"`
}

// ConfirmEmailChange handles POST /users/confirm-email-change.
func (h *Handler) ConfirmEmailChange(c *fiber.Ctx) error {
	callerID, _ := c.Locals("user_id").(string)
	var req emailConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	u, err := h.svc.ConfirmEmailChange(c.UserContext(), callerID, req.OTP)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Email updated successfully.",
		"user":    u.Sanitized(),
	})
}

// Delete handles DELETE /users/:userId for the user themselves or an admin.
func (h *Handler) Delete(c *fiber.Ctx) error {
	targetID := c.Params("userId")
	if err := requireSelfOrAdmin(c, targetID, "You are not allowed to delete this user"); err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), targetID); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "User has been deleted"})
}

// List handles GET /users for admins with startIndex/limit paging.
func (h *Handler) List(c *fiber.Ctx) error {
	isAdmin, _ := c.Locals("is_admin").(bool)
	if !isAdmin {
		return apperror.Authorization("You are not allowed to see all users")
	}
	offset := c.QueryInt("startIndex", 0)
	limit := c.QueryInt("limit", 20)
	profiles, err := h.svc.List(c.UserContext(), offset, limit)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"users": profiles})
}

func requireSelfOrAdmin(c *fiber.Ctx, targetID, message string) error {
	callerID, _ := c.Locals("user_id").(string)
	isAdmin, _ := c.Locals("is_admin").(bool)
	if callerID != targetID && !isAdmin {
		return apperror.Authorization(message)
	}
	return nil
}
