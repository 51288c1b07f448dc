package server

import (
	"time"

	"github.com/Ryz0n/auth-service/internal/auth"
	"github.com/Ryz0n/auth-service/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, cfg *config.Config, h *auth.Handler) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Auth API is running",
		})
	})

	// Per-IP limiter guards the whole group; the per-user sliding-window
	// limits on recovery flows live inside the handlers.
	authGroup := app.Group("/auth")
	authGroup.Post("/register", h.RegisterHandler)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), h.LoginHandler)
	authGroup.Post("/refresh", h.RefreshHandler)
	authGroup.Post("/logout", h.LogoutHandler)
	authGroup.Get("/me", auth.JWTProtected(), h.MeHandler)

	authGroup.Post("/forgot-password", h.ForgotPasswordHandler)
	authGroup.Post("/reset-password", h.ResetPasswordHandler)
	authGroup.Post("/verify-email", h.VerifyEmailHandler)
	authGroup.Post("/resend-verification", auth.JWTProtected(), h.ResendVerificationHandler)
	authGroup.Get("/verification-status", auth.JWTProtected(), h.VerificationStatusHandler)
}
