package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationSocketHandler upgrades the connection and streams live
// notification events to the authenticated user.
func (s *Server) NotificationSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 || !s.flags.Enabled("live_notifications", userID) {
			_ = conn.Close()
			return
		}
		s.hub.ServeUser(s.shutdownCtx, userID, conn)
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
