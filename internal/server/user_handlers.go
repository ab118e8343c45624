package server

import (
	"irtzalink/internal/models"
	"irtzalink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile returns the authenticated user's own profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile applies profile edits for the authenticated user.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var input service.ProfileUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile returns another user's profile by ID.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	user, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetPublicProfile serves a profile page by username. It is public,
// but a signed-in visitor leaves a visit notification for the owner.
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfileByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	if !user.Active {
		return respondError(c, models.NewNotFoundError("User", c.Params("username")))
	}

	if visitorID := currentUserID(c); visitorID != 0 && s.flags.Enabled("visit_notifications", user.ID) {
		s.notificationService.RecordVisit(c.UserContext(), visitorID, user.ID)
	}
	return c.JSON(user)
}

// GetFeatureFlags returns the evaluated flag set for the authenticated
// user, so clients can gate UI features server-side.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.flags.Snapshot(currentUserID(c))})
}

// CheckUsername reports whether a username is valid and unclaimed.
func (s *Server) CheckUsername(c *fiber.Ctx) error {
	username := c.Params("username")
	available, err := s.userService.UsernameAvailable(c.UserContext(), username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"username":  models.NormalizeUsername(username),
		"available": available,
	})
}

// SearchUsers finds users by username or display name.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	results, err := s.userService.Search(c.UserContext(), c.Query("q"), parseLimit(c), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": results})
}
