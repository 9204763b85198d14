package models

import (
	"time"
)

// User is an account record. Username is the primary key; PasswordDigest is
// the deterministic sha256 digest of the password, never the plain text.
type User struct {
	Username       string `gorm:"primaryKey" json:"username"`
	PasswordDigest string `gorm:"not null" json:"-"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
