package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

func (m *Middleware) RequireAdmin() fiber.Handler {
	log := m.log.Function("RequireAdmin")

	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			log.Info("user not found in context")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if !user.IsAdmin() {
			log.Info("user is not admin", "userID", user.ID, "email", user.Email)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}

// RequireWebhookSecret authenticates gateway callbacks with a shared secret
// header instead of a user session.
func (m *Middleware) RequireWebhookSecret() fiber.Handler {
	log := m.log.Function("RequireWebhookSecret")

	return func(c *fiber.Ctx) error {
		if m.Config.GatewayWebhookSecret == "" {
			log.Warn("webhook secret not configured, rejecting callback")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Webhooks are not enabled",
			})
		}

		provided := c.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare(
			[]byte(provided),
			[]byte(m.Config.GatewayWebhookSecret),
		) != 1 {
			log.Info("webhook secret mismatch")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid webhook secret",
			})
		}

		return c.Next()
	}
}
