package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetRelationship returns the viewer's relationship tag with the
// target user.
func (s *Server) GetRelationship(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	rel, err := s.followService.GetRelationship(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"relationship": rel})
}

// FollowUser creates the viewer->target follow edge.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	rel, err := s.followService.Follow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"relationship": rel})
}

// UnfollowUser removes the viewer->target follow edge.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	rel, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"relationship": rel})
}

// GetFollowers returns a user's followers, newest first.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	users, err := s.followService.Followers(c.UserContext(), userID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetFollowing returns who a user follows, newest first.
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	users, err := s.followService.Following(c.UserContext(), userID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetFollowCounts returns a user's aggregate follow counts.
func (s *Server) GetFollowCounts(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	counts, err := s.followService.Counts(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}
