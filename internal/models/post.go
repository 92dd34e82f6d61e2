package models

import "time"

// Post represents a top-level submission to the board. Author is a soft
// reference to users.username; posts whose author record disappears are
// tolerated and still rendered.
type Post struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Author    string `gorm:"size:64;not null;index"`
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName overrides the table name for Post
func (Post) TableName() string {
	return "posts"
}
