// Package models contains data structures for the application's domain models.
package models

import (
	"regexp"
	"strings"
	"time"
)

// usernameRe is the claimable username shape: lowercase, 3-20 chars.
var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// SocialLinks holds the per-platform URLs rendered on a public profile.
type SocialLinks struct {
	Website   string `json:"website,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	GitHub    string `json:"github,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// User represents a profile owner. Follower and following counts are
// denormalized counter columns maintained inside the follow/unfollow
// transaction.
type User struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Username       string      `gorm:"uniqueIndex;size:20;not null" json:"username"`
	Email          string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string      `gorm:"size:255;not null" json:"-"`
	DisplayName    string      `gorm:"size:100" json:"display_name"`
	Bio            string      `gorm:"size:500" json:"bio"`
	AvatarURL      string      `gorm:"size:512" json:"avatar_url"`
	Theme          string      `gorm:"size:40;default:'default'" json:"theme"`
	Links          SocialLinks `gorm:"serializer:json" json:"links"`
	Active         bool        `gorm:"default:true;index" json:"active"`
	FollowersCount int64       `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int64       `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserSummary is the compact projection embedded in follow lists and
// notifications.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Summary returns the compact projection of u.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// NormalizeUsername lowercases and trims a requested username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether a normalized username is claimable.
func ValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}
