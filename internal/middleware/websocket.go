package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade lets only websocket upgrade requests that carry a
// listener id through to the push handler.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Locals set here survive the upgrade.
		if c.Locals(ListenerIDKey) == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "listener ID is required",
			})
		}
		return c.Next()
	}
}
