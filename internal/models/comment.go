package models

import "time"

// Comment represents a reply under a post. Comments are append-only: there
// is no edit or delete operation for them.
type Comment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	PostID    uint   `gorm:"not null;index"`
	Author    string `gorm:"size:64;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// TableName overrides the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
