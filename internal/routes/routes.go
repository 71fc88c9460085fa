package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/blog-top/blog_top/internal/audit"
	"github.com/blog-top/blog_top/internal/auth"
	"github.com/blog-top/blog_top/internal/config"
	"github.com/blog-top/blog_top/internal/mailer"
	"github.com/blog-top/blog_top/internal/middleware"
	"github.com/blog-top/blog_top/internal/session"
	"github.com/blog-top/blog_top/internal/subscription"
	"github.com/blog-top/blog_top/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	Mail   mailer.Mailer // optional; defaults from config when nil
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside development both stores must be present even though main checks too.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage backends: Postgres in deployment, in-memory in dev mode.
	var userRepo user.Repository
	var orderRepo subscription.Repository
	var recorder audit.Recorder
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
		orderRepo = subscription.NewPostgresRepository(d.DB)
		recorder = audit.NewPostgresRecorder(d.DB)
	} else {
		userRepo = user.NewMemoryRepository()
		orderRepo = subscription.NewMemoryRepository()
		recorder = audit.NewInMemory()
	}

	mail := d.Mail
	if mail == nil {
		if d.Cfg.SMTPHost != "" {
			mail = mailer.NewSMTPMailer(d.Cfg.SMTPHost, d.Cfg.SMTPPort,
				d.Cfg.SMTPUsername, d.Cfg.SMTPPassword, d.Cfg.MailFrom)
		} else {
			mail = mailer.NewLogMailer(d.Logger)
		}
	}

	var provider subscription.Provider
	if d.Cfg.EsewaSecret != "" {
		provider = subscription.NewEsewaProvider(d.Cfg.EsewaSecret, d.Cfg.EsewaProductCode)
	} else {
		provider = subscription.StaticProvider{}
	}

	sessions := session.NewIssuer(d.Cfg.JWTSecret, d.Cfg.SessionTTL)
	denylist := session.NewDenylist(d.Cache)

	authSvc := auth.NewService(d.Cfg, userRepo, mail, sessions, denylist, recorder, d.Logger)
	authHandler := auth.NewHandler(authSvc, !d.Cfg.IsDev(), d.Cfg.SessionTTL)

	userSvc := user.NewService(d.Cfg, userRepo, mail, recorder, d.Logger)
	userHandler := user.NewHandler(userSvc)

	subSvc := subscription.NewService(orderRepo, userRepo, provider, recorder, d.Logger)
	subHandler := subscription.NewHandler(subSvc)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimit := func(scope string) fiber.Handler {
		return middleware.EmailRateLimit(d.Cache, scope, d.Cfg.AuthRatePerMinute)
	}
	RegisterAuthRoutes(api, authHandler, rateLimit)

	requireAuth := middleware.RequireAuth(sessions, denylist, d.Logger)
	RegisterUserRoutes(api, userHandler, requireAuth)
	RegisterSubscriptionRoutes(api, subHandler, requireAuth)
	RegisterAdminRoutes(api, recorder, requireAuth)

	return nil
}
