package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitApp(t *testing.T, maxPerMin int) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Post("/signin", EmailRateLimit(cache, "signin", maxPerMin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, mr
}

func postSignin(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/signin",
		strings.NewReader(`{"email":"`+email+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestEmailRateLimitBlocksAfterThreshold(t *testing.T) {
	app, _ := setupRateLimitApp(t, 3)

	for i := 0; i < 3; i++ {
		if code := postSignin(t, app, "a@example.com"); code != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, code)
		}
	}
	if code := postSignin(t, app, "a@example.com"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}

	// A different address has its own budget.
	if code := postSignin(t, app, "b@example.com"); code != fiber.StatusOK {
		t.Fatalf("expected 200 for second address, got %d", code)
	}
}

func TestEmailRateLimitWindowResets(t *testing.T) {
	app, mr := setupRateLimitApp(t, 1)

	if code := postSignin(t, app, "a@example.com"); code != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if code := postSignin(t, app, "a@example.com"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}

	mr.FastForward(2 * time.Minute)
	if code := postSignin(t, app, "a@example.com"); code != fiber.StatusOK {
		t.Fatalf("expected 200 after the window lapsed, got %d", code)
	}
}

func TestEmailRateLimitNoopWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Post("/signin", EmailRateLimit(nil, "signin", 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/signin",
			strings.NewReader(`{"email":"a@example.com"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected pass-through, got %d", resp.StatusCode)
		}
	}
}
