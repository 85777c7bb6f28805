package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/holdergate/holdergate/internal/challenge"
	"github.com/holdergate/holdergate/internal/config"
	"github.com/holdergate/holdergate/internal/middleware"
	"github.com/holdergate/holdergate/internal/synchronizer"
	"github.com/holdergate/holdergate/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Logger     *slog.Logger
	Challenges *challenge.Service
	Users      user.Repository
	Sync       *synchronizer.Synchronizer
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	signinHandler := challenge.NewHandler(d.Challenges, d.Users, d.Sync, d.Logger)

	api := app.Group("/api")

	// Public sign-in surface.
	rateLimiter := middleware.SignInRateLimit(d.Cache, 10)
	RegisterSignInRoutes(api, signinHandler, rateLimiter)

	// Operational surface for the bot and operators.
	admin := api.Group("/admin", middleware.AdminAuth(d.Cfg.AdminToken))
	admin.Post("/challenge", signinHandler.Issue)
	RegisterSyncRoutes(admin, d.Sync, d.Logger)

	return nil
}
