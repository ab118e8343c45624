// Package bootstrap initializes runtime dependencies for the server
// entry point.
package bootstrap

import (
	"context"
	"fmt"

	"irtzalink/internal/cache"
	"irtzalink/internal/config"
	"irtzalink/internal/database"
	"irtzalink/internal/middleware"
	"irtzalink/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData populates an empty development database with a fake
	// profile mesh. Ignored outside development.
	SeedDemoData bool
}

// InitRuntime connects to the database and Redis, and optionally seeds
// demo data. Redis being unreachable is not fatal; the caller receives
// a nil client and the caches degrade.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(cfg.RedisURL)

	if opts.SeedDemoData && cfg.Env == "development" {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("demo seeding failed: %w", err)
		}
	}

	return db, redisClient, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Table("users").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	middleware.Logger.Info("empty development database, seeding demo data")
	return seed.Run(ctx, db, seed.DefaultOptions())
}
