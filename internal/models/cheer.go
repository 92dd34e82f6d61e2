package models

import "time"

// Cheer represents a user's endorsement of a post. The (Username, PostID)
// pair is the natural key: at most one cheer per user per post, enforced by
// a unique index.
type Cheer struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"size:64;not null;uniqueIndex:idx_cheer_user_post"`
	PostID    uint   `gorm:"not null;uniqueIndex:idx_cheer_user_post"`
	CreatedAt time.Time
}

// TableName overrides the table name for Cheer
func (Cheer) TableName() string {
	return "cheers"
}
