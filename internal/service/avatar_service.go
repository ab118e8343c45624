package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"irtzalink/internal/blob"
	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
	"irtzalink/internal/repository"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	// AvatarMaxBytes bounds the accepted upload size.
	AvatarMaxBytes = 5 << 20
	// AvatarSize is the square edge avatars are normalized to.
	AvatarSize = 256

	avatarQuality = 85
)

// AvatarService normalizes uploaded avatar images and stores them.
// Uploads of any supported format come out as 256x256 WebP.
type AvatarService struct {
	users  repository.UserRepository
	store  blob.Store
	logger *slog.Logger
}

// NewAvatarService creates a new avatar service.
func NewAvatarService(users repository.UserRepository, store blob.Store, logger *slog.Logger) *AvatarService {
	if logger == nil {
		logger = middleware.Logger
	}
	return &AvatarService{users: users, store: store, logger: logger}
}

// Upload decodes, resizes, and re-encodes the image, stores it under a
// fresh key, and records the key on the user's profile.
func (s *AvatarService) Upload(ctx context.Context, userID uint, data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("Avatar image is empty")
	}
	if len(data) > AvatarMaxBytes {
		return "", models.NewValidationError("Avatar image exceeds the 5 MB limit")
	}

	encoded, err := normalizeAvatar(data)
	if err != nil {
		return "", models.NewValidationError("Avatar must be a valid JPEG, PNG, or WebP image")
	}

	key := fmt.Sprintf("avatars/%d/%s.webp", userID, uuid.NewString())
	if err := s.store.Put(ctx, key, "image/webp", encoded); err != nil {
		return "", models.NewInternalError(err)
	}

	if err := s.users.UpdateFields(ctx, userID, map[string]interface{}{"avatar_url": key}); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "avatar uploaded",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("key", key),
		slog.Int("bytes", len(encoded)))
	return key, nil
}

// SignedURL returns a time-limited download link for the user's
// current avatar.
func (s *AvatarService) SignedURL(ctx context.Context, userID uint, expiry time.Duration) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.AvatarURL == "" {
		return "", models.NewNotFoundError("Avatar", userID)
	}
	url, err := s.store.SignedURL(ctx, user.AvatarURL, expiry)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return url, nil
}

// normalizeAvatar decodes any registered format, center-crops to a
// square, scales to AvatarSize, and encodes lossy WebP.
func normalizeAvatar(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// image.Decode only knows jpeg/png here; fall back to webp input.
		src, err = webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding avatar: %w", err)
		}
	}

	bounds := src.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	crop := image.Rect(0, 0, side, side).Add(image.Point{
		X: bounds.Min.X + (bounds.Dx()-side)/2,
		Y: bounds.Min.Y + (bounds.Dy()-side)/2,
	})

	dst := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: avatarQuality}); err != nil {
		return nil, fmt.Errorf("encoding avatar: %w", err)
	}
	return buf.Bytes(), nil
}
