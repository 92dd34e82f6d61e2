package store

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"gorm.io/gorm"
)

// CheerStore provides cheer reads and writes over the cheers table. The
// (username, post) pair is the natural key; all writes preserve the at most
// one cheer per user per post invariant.
type CheerStore struct {
	db      *gorm.DB
	tracker *live.Tracker
	log     zerolog.Logger
}

// NewCheerStore creates a CheerStore bound to db and tracker.
func NewCheerStore(db *gorm.DB, tracker *live.Tracker, log zerolog.Logger) *CheerStore {
	return &CheerStore{db: db, tracker: tracker, log: log}
}

// Add records a cheer unless the pair already exists. The existing case is
// reported as (false, nil).
func (s *CheerStore) Add(username string, postID uint) (bool, error) {
	added := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Cheer{}).
			Where("username = ? AND post_id = ?", username, postID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.Cheer{Username: username, PostID: postID}).Error
	})
	if err != nil {
		return false, err
	}
	if added {
		s.tracker.Invalidate(models.Cheer{}.TableName())
	}
	return added, nil
}

// Remove deletes the cheer for the pair if present.
func (s *CheerStore) Remove(username string, postID uint) error {
	result := s.db.Where("username = ? AND post_id = ?", username, postID).Delete(&models.Cheer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.tracker.Invalidate(models.Cheer{}.TableName())
	}
	return nil
}

// Toggle flips the cheer's presence for the pair in a single transaction:
// delete if a row exists, insert otherwise. It returns the resulting
// presence. Running the check and the write in one transaction keeps
// concurrent toggles of the same pair from double-applying.
func (s *CheerStore) Toggle(username string, postID uint) (bool, error) {
	present := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("username = ? AND post_id = ?", username, postID).Delete(&models.Cheer{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		present = true
		return tx.Create(&models.Cheer{Username: username, PostID: postID}).Error
	})
	if err != nil {
		return false, err
	}
	s.tracker.Invalidate(models.Cheer{}.TableName())
	return present, nil
}

// WatchCount re-emits the post's cheer count whenever the cheers table
// changes.
func (s *CheerStore) WatchCount(ctx context.Context, postID uint) <-chan int64 {
	return watch(ctx, s.log, s.tracker, []string{models.Cheer{}.TableName()}, func() (int64, error) {
		var count int64
		err := s.db.Model(&models.Cheer{}).Where("post_id = ?", postID).Count(&count).Error
		return count, err
	})
}

// WatchHasUser re-emits whether the user has cheered the post whenever the
// cheers table changes.
func (s *CheerStore) WatchHasUser(ctx context.Context, username string, postID uint) <-chan bool {
	return watch(ctx, s.log, s.tracker, []string{models.Cheer{}.TableName()}, func() (bool, error) {
		var count int64
		err := s.db.Model(&models.Cheer{}).
			Where("username = ? AND post_id = ?", username, postID).
			Count(&count).Error
		return count > 0, err
	})
}
