package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications returns the authenticated user's inbox, newest
// first.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	items, err := s.notificationService.List(c.UserContext(), currentUserID(c), parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": items})
}

// GetUnreadCount returns the badge count.
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationRead marks one notification as read.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.notificationService.MarkRead(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead clears the unread badge.
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	if err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
