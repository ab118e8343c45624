package repository

import (
	"context"

	"irtzalink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow-edge data operations.
// CreateEdge and DeleteEdge keep the edge row and the denormalized
// counter columns consistent inside one transaction.
type FollowRepository interface {
	CreateEdge(ctx context.Context, followerID, followeeID uint) (created bool, err error)
	DeleteEdge(ctx context.Context, followerID, followeeID uint) (deleted bool, err error)
	EdgePair(ctx context.Context, viewerID, targetID uint) (forward, reverse bool, err error)
	Counts(ctx context.Context, userID uint) (models.FollowCounts, error)
	Followers(ctx context.Context, userID uint, limit int) ([]models.User, error)
	Following(ctx context.Context, userID uint, limit int) ([]models.User, error)
}

// followRepository implements FollowRepository
type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) CreateEdge(ctx context.Context, followerID, followeeID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		follow := models.Follow{
			FollowerID: followerID,
			FolloweeID: followeeID,
		}
		// The unique pair index makes a repeat follow a clean no-op.
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		if err := tx.Model(&models.User{}).
			Where("id = ?", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", followeeID).
			UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return created, nil
}

func (r *followRepository) DeleteEdge(ctx context.Context, followerID, followeeID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&models.Follow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true

		if err := tx.Model(&models.User{}).
			Where("id = ? AND following_count > 0", followerID).
			UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND followers_count > 0", followeeID).
			UpdateColumn("followers_count", gorm.Expr("followers_count - 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return deleted, nil
}

func (r *followRepository) EdgePair(ctx context.Context, viewerID, targetID uint) (bool, bool, error) {
	var edges []models.Follow
	if err := r.db.WithContext(ctx).
		Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)",
			viewerID, targetID, targetID, viewerID).
		Find(&edges).Error; err != nil {
		return false, false, models.NewInternalError(err)
	}

	forward, reverse := false, false
	for _, e := range edges {
		if e.FollowerID == viewerID {
			forward = true
		} else {
			reverse = true
		}
	}
	return forward, reverse, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (models.FollowCounts, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Select("followers_count", "following_count").
		First(&user, userID).Error; err != nil {
		return models.FollowCounts{}, models.NewInternalError(err)
	}
	return models.FollowCounts{
		Followers: user.FollowersCount,
		Following: user.FollowingCount,
	}, nil
}

func (r *followRepository) Followers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows f ON users.id = f.follower_id").
		Where("f.followee_id = ?", userID).
		Order("f.created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) Following(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows f ON users.id = f.followee_id").
		Where("f.follower_id = ?", userID).
		Order("f.created_at DESC").
		Limit(ClampLimit(limit)).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
