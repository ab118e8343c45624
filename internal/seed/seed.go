// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
	"irtzalink/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	FollowsPerUser int
	ShouldClean    bool
}

// DefaultOptions returns a small mesh suitable for local development.
func DefaultOptions() Options {
	return Options{NumUsers: 25, FollowsPerUser: 5}
}

// Run populates the database with fake profiles and a follow mesh. All
// seeded accounts share the password "password123".
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts = DefaultOptions()
	}

	if opts.ShouldClean {
		for _, table := range []string{"notifications", "follows", "users"} {
			if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("cleaning %s: %w", table, err)
			}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	notifications := repository.NewNotificationRepository(db)

	seeded := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		username := seedUsername(i)
		user := &models.User{
			Username:     username,
			Email:        username + "@example.com",
			PasswordHash: string(hash),
			DisplayName:  gofakeit.Name(),
			Bio:          gofakeit.Sentence(8),
			Theme:        gofakeit.RandomString([]string{"default", "midnight", "sunset", "forest"}),
			Links: models.SocialLinks{
				Website: gofakeit.URL(),
				Twitter: "https://twitter.com/" + username,
				GitHub:  "https://github.com/" + username,
			},
			Active: true,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seeding user %s: %w", username, err)
		}
		seeded = append(seeded, user)
	}

	edges := 0
	for _, follower := range seeded {
		for _, followee := range pickTargets(seeded, follower, opts.FollowsPerUser) {
			created, err := follows.CreateEdge(ctx, follower.ID, followee.ID)
			if err != nil {
				return fmt.Errorf("seeding follow edge: %w", err)
			}
			if !created {
				continue
			}
			edges++
			if err := notifications.Create(ctx, &models.Notification{
				UserID:     followee.ID,
				FromUserID: follower.ID,
				Type:       models.NotificationFollow,
				Message:    fmt.Sprintf("%s started following you", follower.DisplayName),
			}); err != nil {
				return fmt.Errorf("seeding notification: %w", err)
			}
		}
	}

	middleware.Logger.Info("seeding completed",
		"users", len(seeded),
		"follows", edges)
	return nil
}

func seedUsername(i int) string {
	base := strings.ToLower(gofakeit.Username())
	cleaned := make([]rune, 0, len(base))
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			cleaned = append(cleaned, r)
		}
	}
	name := string(cleaned)
	if len(name) > 14 {
		name = name[:14]
	}
	if len(name) < 3 {
		name = "profile"
	}
	// Suffix keeps usernames unique and inside the claimable shape.
	return fmt.Sprintf("%s_%d", name, i)
}

// pickTargets selects up to n distinct users other than follower.
func pickTargets(all []*models.User, follower *models.User, n int) []*models.User {
	perm := rand.Perm(len(all))
	targets := make([]*models.User, 0, n)
	for _, idx := range perm {
		candidate := all[idx]
		if candidate.ID == follower.ID {
			continue
		}
		targets = append(targets, candidate)
		if len(targets) == n {
			break
		}
	}
	return targets
}
