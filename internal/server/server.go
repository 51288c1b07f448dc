package server

import (
	"github.com/Ryz0n/auth-service/internal/auth"
	"github.com/Ryz0n/auth-service/internal/config"
	"github.com/Ryz0n/auth-service/internal/email"
	"github.com/gofiber/fiber/v2"
)

func New(cfg *config.Config, mailer email.Sender) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	handler := auth.NewHandler(cfg, mailer)
	SetupRoutes(app, cfg, handler)

	return app
}
