// Package repository aggregates the per-entity stores behind one facade.
// The view-state layer talks only to this type; it never learns which store
// services a given call.
package repository

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"github.com/tavern-app/tavern/internal/store"
	"gorm.io/gorm"
)

// Repository is the single data facade for the Tavern client.
type Repository struct {
	users    *store.UserStore
	posts    *store.PostStore
	comments *store.CommentStore
	cheers   *store.CheerStore
}

// New wires all entity stores to the shared database handle and tracker.
func New(db *gorm.DB, tracker *live.Tracker, log zerolog.Logger) *Repository {
	return &Repository{
		users:    store.NewUserStore(db, tracker, log),
		posts:    store.NewPostStore(db, tracker, log),
		comments: store.NewCommentStore(db, tracker, log),
		cheers:   store.NewCheerStore(db, tracker, log),
	}
}

// Login returns the matching user, or nil when the credentials are invalid.
func (r *Repository) Login(username, password string) (*models.User, error) {
	return r.users.Login(username, password)
}

// Register inserts the user; false means the username is taken. Auto-login
// on success is the caller's policy, not the repository's.
func (r *Repository) Register(user *models.User) (bool, error) {
	return r.users.Register(user)
}

// GetUser returns the user with the given name, or nil when absent.
func (r *Repository) GetUser(username string) (*models.User, error) {
	return r.users.ByName(username)
}

// UpdateUser overwrites the full user record.
func (r *Repository) UpdateUser(user *models.User) error {
	return r.users.Update(user)
}

// WatchUser re-emits the named user on every change.
func (r *Repository) WatchUser(ctx context.Context, username string) <-chan *models.User {
	return r.users.WatchByName(ctx, username)
}

// AddPost stores a new post.
func (r *Repository) AddPost(post *models.Post) error {
	return r.posts.Insert(post)
}

// DeletePost removes a post and its comments and cheers. No ownership check
// happens here; that rule lives in the view-state layer.
func (r *Repository) DeletePost(id uint) error {
	return r.posts.Delete(id)
}

// WatchAllPosts re-emits the full feed, newest first.
func (r *Repository) WatchAllPosts(ctx context.Context) <-chan []models.Post {
	return r.posts.WatchAll(ctx)
}

// WatchSearchPosts re-emits posts matching the keyword.
func (r *Repository) WatchSearchPosts(ctx context.Context, keyword string) <-chan []models.Post {
	return r.posts.WatchSearch(ctx, keyword)
}

// WatchPostsByAuthor re-emits the author's posts.
func (r *Repository) WatchPostsByAuthor(ctx context.Context, author string) <-chan []models.Post {
	return r.posts.WatchByAuthor(ctx, author)
}

// AddComment stores a new comment.
func (r *Repository) AddComment(comment *models.Comment) error {
	return r.comments.Insert(comment)
}

// WatchComments re-emits the post's comments in insertion order.
func (r *Repository) WatchComments(ctx context.Context, postID uint) <-chan []models.Comment {
	return r.comments.WatchForPost(ctx, postID)
}

// ToggleCheer flips the cheer's presence for (username, post) and returns
// the resulting presence. The flip is a single store transaction.
func (r *Repository) ToggleCheer(username string, postID uint) (bool, error) {
	return r.cheers.Toggle(username, postID)
}

// WatchCheerCount re-emits the post's cheer count.
func (r *Repository) WatchCheerCount(ctx context.Context, postID uint) <-chan int64 {
	return r.cheers.WatchCount(ctx, postID)
}

// WatchHasUserCheered re-emits whether the user has cheered the post.
func (r *Repository) WatchHasUserCheered(ctx context.Context, username string, postID uint) <-chan bool {
	return r.cheers.WatchHasUser(ctx, username, postID)
}
