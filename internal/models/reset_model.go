package models

import (
	"time"
)

// PasswordReset stores the bcrypt hash of a 6-digit reset code.
// At most one unused row per user is live at a time: issuing a new code
// marks all prior unused rows used.
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	CodeHash  string    `gorm:"size:255;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"default:false"`
	CreatedAt time.Time
}
