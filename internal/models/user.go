package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBio is the placeholder shown on profiles that were never edited.
const DefaultBio = "This tavern patron hasn't written a bio yet."

// User represents a registered account. The username is the identity and
// never changes after registration; only Bio, Avatar and Settings are
// mutable through profile updates.
type User struct {
	Username     string `gorm:"primaryKey;size:64"`
	PasswordHash string `gorm:"not null" json:"-"`
	Bio          string `gorm:"type:text"`
	Avatar       string `gorm:"size:255"`
	Settings     JSON   `gorm:"type:json"`
	JoinedAt     time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// SetPassword hashes the plaintext password with bcrypt at the given cost.
func (u *User) SetPassword(password string, cost int) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether the plaintext password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
