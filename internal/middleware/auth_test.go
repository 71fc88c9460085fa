package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/blog-top/blog_top/internal/logging"
	"github.com/blog-top/blog_top/internal/session"
)

func setupAuthApp(t *testing.T, issuer *session.Issuer, denylist *session.Denylist) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/me", RequireAuth(issuer, denylist, logging.Discard()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":  c.Locals("user_id"),
			"is_admin": c.Locals("is_admin"),
		})
	})
	app.Get("/admin", RequireAuth(issuer, denylist, logging.Discard()), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	issuer := session.NewIssuer("test-secret", time.Hour)
	app := setupAuthApp(t, issuer, session.NewDenylist(nil))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
}

func TestRequireAuthAcceptsCookie(t *testing.T) {
	issuer := session.NewIssuer("test-secret", time.Hour)
	app := setupAuthApp(t, issuer, session.NewDenylist(nil))

	token, _, err := issuer.Issue("user-1", false, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}

func TestRequireAuthAcceptsBearerHeader(t *testing.T) {
	issuer := session.NewIssuer("test-secret", time.Hour)
	app := setupAuthApp(t, issuer, session.NewDenylist(nil))

	token, _, err := issuer.Issue("user-1", false, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}

func TestRequireAuthRejectsRevokedToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	issuer := session.NewIssuer("test-secret", time.Hour)
	denylist := session.NewDenylist(cache)
	app := setupAuthApp(t, issuer, denylist)

	token, claims, err := issuer.Issue("user-1", false, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := denylist.Revoke(context.Background(), claims.ID, time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
}

func TestRequireAdmin(t *testing.T) {
	issuer := session.NewIssuer("test-secret", time.Hour)
	app := setupAuthApp(t, issuer, session.NewDenylist(nil))

	plain, _, err := issuer.Issue("user-1", false, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	admin, _, err := issuer.Issue("user-2", true, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+plain)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}
