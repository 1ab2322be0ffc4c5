package handlers

import (
	"spruce/internal/app"
	"spruce/internal/handlers/middleware"
	"spruce/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewScheduleHandler(*app, api).Register()
	NewPaymentHandler(*app, api).Register()
	NewWebhookHandler(*app, api).Register()
	NewJobHandler(*app, api).Register()

	return nil
}
