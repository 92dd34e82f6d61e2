package store

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"gorm.io/gorm"
)

// CommentStore provides comment reads and writes over the comments table.
type CommentStore struct {
	db      *gorm.DB
	tracker *live.Tracker
	log     zerolog.Logger
}

// NewCommentStore creates a CommentStore bound to db and tracker.
func NewCommentStore(db *gorm.DB, tracker *live.Tracker, log zerolog.Logger) *CommentStore {
	return &CommentStore{db: db, tracker: tracker, log: log}
}

// Insert stores a new comment.
func (s *CommentStore) Insert(comment *models.Comment) error {
	if err := s.db.Create(comment).Error; err != nil {
		return err
	}
	s.tracker.Invalidate(models.Comment{}.TableName())
	return nil
}

// WatchForPost re-emits the post's comments in insertion order whenever the
// comments table changes.
func (s *CommentStore) WatchForPost(ctx context.Context, postID uint) <-chan []models.Comment {
	return watch(ctx, s.log, s.tracker, []string{models.Comment{}.TableName()}, func() ([]models.Comment, error) {
		var comments []models.Comment
		err := s.db.Where("post_id = ?", postID).Order("id ASC").Find(&comments).Error
		return comments, err
	})
}
