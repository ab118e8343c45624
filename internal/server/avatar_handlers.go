package server

import (
	"io"
	"time"

	"irtzalink/internal/models"
	"irtzalink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadAvatar accepts a multipart image upload, normalizes it, and
// stores it as the authenticated user's avatar.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	if s.avatarService == nil {
		return respondError(c, models.NewValidationError("Avatar uploads are not enabled"))
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return respondError(c, models.NewValidationError("Missing 'avatar' file field"))
	}
	if fileHeader.Size > service.AvatarMaxBytes {
		return respondError(c, models.NewValidationError("Avatar image exceeds the 5 MB limit"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.AvatarMaxBytes+1))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	key, err := s.avatarService.Upload(c.UserContext(), currentUserID(c), data)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"avatar_url": key})
}

// avatarURLExpiry bounds how long a signed avatar link stays valid.
const avatarURLExpiry = 24 * time.Hour

// GetAvatarURL returns a signed download link for the authenticated
// user's avatar.
func (s *Server) GetAvatarURL(c *fiber.Ctx) error {
	if s.avatarService == nil {
		return respondError(c, models.NewValidationError("Avatar uploads are not enabled"))
	}
	url, err := s.avatarService.SignedURL(c.UserContext(), currentUserID(c), avatarURLExpiry)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}
