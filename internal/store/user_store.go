package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/tavern-app/tavern/internal/live"
	"github.com/tavern-app/tavern/internal/models"
	"gorm.io/gorm"
)

// UserStore provides account reads and writes over the users table.
type UserStore struct {
	db      *gorm.DB
	tracker *live.Tracker
	log     zerolog.Logger
}

// NewUserStore creates a UserStore bound to db and tracker.
func NewUserStore(db *gorm.DB, tracker *live.Tracker, log zerolog.Logger) *UserStore {
	return &UserStore{db: db, tracker: tracker, log: log}
}

// Login returns the user when the credentials match. A missing account and a
// wrong password both return (nil, nil); errors are reserved for store
// failures.
func (s *UserStore) Login(username, password string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, nil
	}
	return &user, nil
}

// Register inserts the user unless the username is taken. The taken case is
// reported as (false, nil), distinct from a store failure. Check and insert
// run in one transaction so concurrent registrations of the same name cannot
// both succeed.
func (s *UserStore) Register(user *models.User) (bool, error) {
	taken := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			taken = true
			return nil
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}
	s.tracker.Invalidate(models.User{}.TableName())
	return true, nil
}

// ByName returns the user with the given username, or (nil, nil) when no
// such account exists.
func (s *UserStore) ByName(username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update overwrites the full user record. There are no partial-update
// semantics; callers send the complete desired state.
func (s *UserStore) Update(user *models.User) error {
	if err := s.db.Save(user).Error; err != nil {
		return err
	}
	s.tracker.Invalidate(models.User{}.TableName())
	return nil
}

// WatchByName re-emits the user (or nil) whenever the users table changes.
func (s *UserStore) WatchByName(ctx context.Context, username string) <-chan *models.User {
	return watch(ctx, s.log, s.tracker, []string{models.User{}.TableName()}, func() (*models.User, error) {
		return s.ByName(username)
	})
}
