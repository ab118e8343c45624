// Package service contains the application's business logic, between
// the HTTP handlers and the repositories.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
	"irtzalink/internal/repository"
	"irtzalink/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput carries a signup request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdateInput carries the editable profile fields. Nil pointers
// leave the stored value untouched.
type ProfileUpdateInput struct {
	DisplayName *string             `json:"display_name"`
	Bio         *string             `json:"bio"`
	Theme       *string             `json:"theme"`
	Links       *models.SocialLinks `json:"links"`
}

// UserService handles accounts, authentication, and profile edits.
type UserService struct {
	users     repository.UserRepository
	jwtSecret []byte
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, jwtSecret string, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = middleware.Logger
	}
	return &UserService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// Register creates an account with a claimable username and a bcrypt
// password hash.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := models.NormalizeUsername(input.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("A valid email is required")
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  username,
		Theme:        "default",
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and returns the user with a signed JWT.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Same response for unknown email and bad password.
		return nil, "", models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", models.NewUnauthorizedError("Invalid email or password")
	}
	if !user.Active {
		return nil, "", models.NewUnauthorizedError("Account is deactivated")
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// GetProfile returns a user's profile by ID.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetProfileByUsername returns a user's public profile.
func (s *UserService) GetProfileByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// UpdateProfile applies the provided profile edits.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input ProfileUpdateInput) (*models.User, error) {
	fields := map[string]interface{}{}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if len(name) > 100 {
			return nil, models.NewValidationError("Display name must be at most 100 characters")
		}
		fields["display_name"] = name
	}
	if input.Bio != nil {
		if len(*input.Bio) > 500 {
			return nil, models.NewValidationError("Bio must be at most 500 characters")
		}
		fields["bio"] = *input.Bio
	}
	if input.Theme != nil {
		fields["theme"] = *input.Theme
	}
	if input.Links != nil {
		fields["links"] = *input.Links
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.users.GetByID(ctx, userID)
}

// UsernameAvailable reports whether a username is valid, unreserved,
// and unclaimed.
func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	normalized := models.NormalizeUsername(username)
	if validation.ValidateUsername(normalized) != nil {
		return false, nil
	}
	taken, err := s.users.UsernameTaken(ctx, normalized)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Search finds active users matching the query by username or display
// name.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSummary{}, nil
	}
	users, err := s.users.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}

func (s *UserService) generateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
