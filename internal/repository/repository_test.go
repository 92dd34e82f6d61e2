package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Cheer{},
	))

	return New(db, live.NewTracker(), zerolog.Nop())
}

func registered(t *testing.T, repo *Repository, username, password string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Bio: models.DefaultBio, JoinedAt: time.Now()}
	require.NoError(t, user.SetPassword(password, bcrypt.MinCost))
	ok, err := repo.Register(user)
	require.NoError(t, err)
	require.True(t, ok)
	return user
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a live emission")
		panic("unreachable")
	}
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newTestRepo(t)

	registered(t, repo, "alice", "secret123")

	user, err := repo.Login("alice", "secret123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)

	user, err = repo.Login("alice", "wrong")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestDuplicateRegistrationKeepsFirstPassword(t *testing.T) {
	repo := newTestRepo(t)

	registered(t, repo, "bob", "first")

	dup := &models.User{Username: "bob", JoinedAt: time.Now()}
	require.NoError(t, dup.SetPassword("second", bcrypt.MinCost))
	ok, err := repo.Register(dup)
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := repo.Login("bob", "second")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = repo.Login("bob", "first")
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestToggleCheerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	registered(t, repo, "alice", "pw")
	registered(t, repo, "bob", "pw")

	post := &models.Post{Author: "alice", Title: "Hello", Content: "World"}
	require.NoError(t, repo.AddPost(post))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	countCh := repo.WatchCheerCount(ctx, post.ID)
	hasCh := repo.WatchHasUserCheered(ctx, "bob", post.ID)
	require.Equal(t, int64(0), recv(t, countCh))
	require.False(t, recv(t, hasCh))

	present, err := repo.ToggleCheer("bob", post.ID)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(1), recv(t, countCh))
	assert.True(t, recv(t, hasCh))

	present, err = repo.ToggleCheer("bob", post.ID)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, int64(0), recv(t, countCh))
	assert.False(t, recv(t, hasCh))
}

func TestDeletePostDropsItFromTheFeed(t *testing.T) {
	repo := newTestRepo(t)

	post := &models.Post{Author: "alice", Title: "Fleeting"}
	require.NoError(t, repo.AddPost(post))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := repo.WatchAllPosts(ctx)
	require.Len(t, recv(t, feed), 1)

	// The repository itself enforces no ownership; it deletes on request.
	require.NoError(t, repo.DeletePost(post.ID))
	assert.Empty(t, recv(t, feed))
}

func TestSearchMatchesTitleAndContent(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.AddPost(&models.Post{Author: "alice", Title: "Hello", Content: "World"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := recv(t, repo.WatchSearchPosts(ctx, "hello"))
	require.Len(t, hits, 1)
	assert.Equal(t, "Hello", hits[0].Title)

	assert.Empty(t, recv(t, repo.WatchSearchPosts(ctx, "zzz")))
}

func TestCommentsArriveInOrder(t *testing.T) {
	repo := newTestRepo(t)

	post := &models.Post{Author: "alice", Title: "Discuss"}
	require.NoError(t, repo.AddPost(post))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := repo.WatchComments(ctx, post.ID)
	require.Empty(t, recv(t, ch))

	require.NoError(t, repo.AddComment(&models.Comment{PostID: post.ID, Author: "bob", Content: "one"}))
	require.Len(t, recv(t, ch), 1)

	require.NoError(t, repo.AddComment(&models.Comment{PostID: post.ID, Author: "carol", Content: "two"}))
	got := recv(t, ch)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Content)
	assert.Equal(t, "two", got[1].Content)
}

func TestProfileWatchReflectsUpdates(t *testing.T) {
	repo := newTestRepo(t)

	user := registered(t, repo, "carol", "pw")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := repo.WatchUser(ctx, "carol")
	first := recv(t, ch)
	require.NotNil(t, first)

	updated := *user
	updated.Bio = "new bio"
	require.NoError(t, repo.UpdateUser(&updated))

	second := recv(t, ch)
	require.NotNil(t, second)
	assert.Equal(t, "new bio", second.Bio)
}
