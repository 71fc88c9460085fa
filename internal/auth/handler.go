package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/blog-top/blog_top/internal/apperror"
	"github.com/blog-top/blog_top/internal/session"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	svc          *Service
	secureCookie bool
	sessionTTL   time.Duration
}

// NewHandler constructs the auth HTTP handler. secureCookie controls the
// Secure attribute on the session cookie (off for local development).
func NewHandler(svc *Service, secureCookie bool, sessionTTL time.Duration) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie, sessionTTL: sessionTTL}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /signup.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.Signup(c.UserContext(), SignupInput(req)); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Signup successful. Please verify your email.",
	})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyEmail handles POST /verify-email.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.VerifyEmail(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Email verified successfully"})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signin handles POST /signin. Success means an OTP was emailed; an expired
// password is reported as 403 with passwordExpired set so the client can
// route to the change-expired-password flow.
func (h *Handler) Signin(c *fiber.Ctx) error {
	var req signinRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	result, err := h.svc.Signin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if result.PasswordExpired {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"message":         "Your password has expired. Please change it to continue.",
			"passwordExpired": true,
			"userId":          result.UserID,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "OTP sent to your email.",
		"userId":  result.UserID,
	})
}

type verifySigninOTPRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

// VerifySigninOTP handles POST /verify-signin-otp and sets the session cookie.
func (h *Handler) VerifySigninOTP(c *fiber.Ctx) error {
	var req verifySigninOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	u, token, err := h.svc.VerifySigninOTP(c.UserContext(), req.UserID, req.OTP)
	if err != nil {
		return err
	}
	c.Cookie(h.sessionCookie(token))
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": u.Sanitized(), "token": token})
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset handles POST /request-password-reset. The response is
// identical whether or not the account exists.
func (h *Handler) RequestPasswordReset(c *fiber.Ctx) error {
	var req resetRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "If this email exists, an OTP has been sent",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /reset-password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "Password reset successful"})
}

type changeExpiredRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangeExpiredPassword handles POST /change-expired-password.
func (h *Handler) ChangeExpiredPassword(c *fiber.Ctx) error {
	var req changeExpiredRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	if err := h.svc.ChangeExpiredPassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Password changed successfully. You can now sign in.",
	})
}

type googleRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Google handles POST /google for federated sign-in.
func (h *Handler) Google(c *fiber.Ctx) error {
	var req googleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Malformed request body")
	}
	u, token, err := h.svc.GoogleSignIn(c.UserContext(), req.Email, req.Name)
	if err != nil {
		return err
	}
	c.Cookie(h.sessionCookie(token))
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": u.Sanitized(), "token": token})
}

// Logout handles POST /logout: revokes the presented token and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	h.svc.Logout(c.UserContext(), c.Cookies(session.CookieName))
	c.Cookie(h.expiredCookie())
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"message":   "Logged out successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) sessionCookie(token string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(h.sessionTTL),
	}
}

func (h *Handler) expiredCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Now().Add(-time.Hour),
	}
}
