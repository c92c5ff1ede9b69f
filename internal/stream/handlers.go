package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes the per-user push channel. A device connects to
// /ws/{userID} when the adapter binds a user and holds the socket open; the
// server writes sync events, the client's reads are ignored. The bearer
// token must belong to the user whose topic is being subscribed.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler) {
	r.Get("/ws/:userID", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" || userID != c.Params("userID") {
			return fiber.NewError(fiber.StatusForbidden, "token does not match user")
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		userID := c.Params("userID")
		client := hub.Register(userID)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		// Unregister closes Send, which stops the write loop; only then
		// wait for it, so a dead connection never stays registered.
		hub.Unregister(client)
		<-done
	}))
}
