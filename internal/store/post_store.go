package store

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"gorm.io/gorm"
)

// feedOrder sorts newest first, falling back to id for same-timestamp rows.
const feedOrder = "created_at DESC, id DESC"

// PostStore provides post reads and writes over the posts table.
type PostStore struct {
	db      *gorm.DB
	tracker *live.Tracker
	log     zerolog.Logger
}

// NewPostStore creates a PostStore bound to db and tracker.
func NewPostStore(db *gorm.DB, tracker *live.Tracker, log zerolog.Logger) *PostStore {
	return &PostStore{db: db, tracker: tracker, log: log}
}

// Insert stores a new post. The store assigns the id.
func (s *PostStore) Insert(post *models.Post) error {
	if err := s.db.Create(post).Error; err != nil {
		return err
	}
	s.tracker.Invalidate(models.Post{}.TableName())
	return nil
}

// Delete removes the post and, in the same transaction, its comments and
// cheers. The store does not check ownership; who may delete is the caller's
// decision.
func (s *PostStore) Delete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Cheer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return err
	}
	s.tracker.Invalidate(
		models.Post{}.TableName(),
		models.Comment{}.TableName(),
		models.Cheer{}.TableName(),
	)
	return nil
}

// WatchAll re-emits every post, newest first, whenever the posts table
// changes.
func (s *PostStore) WatchAll(ctx context.Context) <-chan []models.Post {
	return watch(ctx, s.log, s.tracker, []string{models.Post{}.TableName()}, func() ([]models.Post, error) {
		var posts []models.Post
		err := s.db.Order(feedOrder).Find(&posts).Error
		return posts, err
	})
}

// likeEscaper neutralizes LIKE metacharacters so a keyword always matches
// literally. The backslash itself must be escaped first.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// WatchSearch matches keyword as a literal, case-insensitive substring of
// the title or content. Blank-keyword handling belongs to the caller; an
// empty keyword matches everything here.
func (s *PostStore) WatchSearch(ctx context.Context, keyword string) <-chan []models.Post {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
	return watch(ctx, s.log, s.tracker, []string{models.Post{}.TableName()}, func() ([]models.Post, error) {
		var posts []models.Post
		err := s.db.
			Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\'`, pattern, pattern).
			Order(feedOrder).
			Find(&posts).Error
		return posts, err
	})
}

// WatchByAuthor re-emits the author's posts, newest first, whenever the
// posts table changes.
func (s *PostStore) WatchByAuthor(ctx context.Context, author string) <-chan []models.Post {
	return watch(ctx, s.log, s.tracker, []string{models.Post{}.TableName()}, func() ([]models.Post, error) {
		var posts []models.Post
		err := s.db.Where("author = ?", author).Order(feedOrder).Find(&posts).Error
		return posts, err
	})
}
