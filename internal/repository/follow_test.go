package repository

import (
	"context"
	"testing"

	"irtzalink/internal/database"
	"irtzalink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepos(t *testing.T) (*gorm.DB, UserRepository, FollowRepository) {
	t.Helper()
	db, err := database.ConnectTest()
	require.NoError(t, err)
	return db, NewUserRepository(db), NewFollowRepository(db)
}

func createUser(t *testing.T, users UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		DisplayName:  username,
		Active:       true,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestFollowRepositoryCreateEdgeIdempotent(t *testing.T) {
	_, users, follows := setupRepos(t)
	ctx := context.Background()
	amira := createUser(t, users, "amira")
	bashir := createUser(t, users, "bashir")

	created, err := follows.CreateEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.True(t, created)

	// Second insert of the same pair is a no-op, not an error.
	created, err = follows.CreateEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.False(t, created)

	// Counters moved exactly once.
	counts, err := follows.Counts(ctx, bashir.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Followers)
	assert.Equal(t, int64(0), counts.Following)

	counts, err = follows.Counts(ctx, amira.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Following)
}

func TestFollowRepositoryDeleteEdgeIdempotent(t *testing.T) {
	_, users, follows := setupRepos(t)
	ctx := context.Background()
	amira := createUser(t, users, "amira")
	bashir := createUser(t, users, "bashir")

	_, err := follows.CreateEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)

	deleted, err := follows.DeleteEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = follows.DeleteEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// Counters never go negative.
	counts, err := follows.Counts(ctx, bashir.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Followers)
	counts, err = follows.Counts(ctx, amira.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Following)
}

func TestFollowRepositoryEdgePair(t *testing.T) {
	_, users, follows := setupRepos(t)
	ctx := context.Background()
	amira := createUser(t, users, "amira")
	bashir := createUser(t, users, "bashir")

	forward, reverse, err := follows.EdgePair(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.False(t, forward)
	assert.False(t, reverse)

	_, err = follows.CreateEdge(ctx, bashir.ID, amira.ID)
	require.NoError(t, err)

	forward, reverse, err = follows.EdgePair(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.False(t, forward)
	assert.True(t, reverse)
	assert.Equal(t, models.RelationshipFollower, models.ClassifyRelationship(forward, reverse))

	_, err = follows.CreateEdge(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)

	forward, reverse, err = follows.EdgePair(ctx, amira.ID, bashir.ID)
	require.NoError(t, err)
	assert.True(t, forward)
	assert.True(t, reverse)
}

func TestFollowRepositoryListsNewestFirst(t *testing.T) {
	_, users, follows := setupRepos(t)
	ctx := context.Background()
	subject := createUser(t, users, "subject")
	first := createUser(t, users, "first")
	second := createUser(t, users, "second")

	_, err := follows.CreateEdge(ctx, first.ID, subject.ID)
	require.NoError(t, err)
	_, err = follows.CreateEdge(ctx, second.ID, subject.ID)
	require.NoError(t, err)
	_, err = follows.CreateEdge(ctx, subject.ID, first.ID)
	require.NoError(t, err)

	followers, err := follows.Followers(ctx, subject.ID, 0)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	usernames := []string{followers[0].Username, followers[1].Username}
	assert.ElementsMatch(t, []string{"first", "second"}, usernames)

	following, err := follows.Following(ctx, subject.ID, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "first", following[0].Username)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampLimit(0))
	assert.Equal(t, DefaultListLimit, ClampLimit(-3))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, MaxListLimit, ClampLimit(5000))
}
