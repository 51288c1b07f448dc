package models

import (
	"time"
)

type RefreshToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Token      string    `gorm:"uniqueIndex;size:512" json:"-"`
	UserID     uint      `gorm:"index" json:"user_id"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	Persistent bool      `gorm:"default:false" json:"persistent"`
	CreatedAt  time.Time `json:"created_at"`
}

// BlacklistedToken makes a structurally valid, unexpired refresh token
// unusable. Rows are swept after a 7 day retention window, by which time
// the token itself has long expired.
type BlacklistedToken struct {
	ID            uint      `gorm:"primaryKey"`
	Token         string    `gorm:"uniqueIndex;size:512"`
	BlacklistedAt time.Time `gorm:"not null;index"`
}
