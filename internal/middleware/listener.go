package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const ListenerIDKey = "listenerID"

// EnsureListenerID tags the request with a listener id taken from the
// X-Listener-ID header or the listenerId query parameter, or a fresh one.
func EnsureListenerID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(ListenerIDKey) != nil {
			return c.Next()
		}

		listenerID := c.Get("X-Listener-ID")
		if listenerID == "" {
			listenerID = c.Query("listenerId")
		}
		if listenerID == "" {
			listenerID = uuid.NewString()
		}

		c.Locals(ListenerIDKey, listenerID)
		return c.Next()
	}
}

// ListenerID returns the id set by EnsureListenerID.
func ListenerID(c *fiber.Ctx) string {
	id, _ := c.Locals(ListenerIDKey).(string)
	return id
}
