package models

import (
	"time"
)

// EmailVerification holds a 64-hex-character single-use token. Issuing a
// new token replaces any existing row for the user.
type EmailVerification struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex;not null"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// VerificationAttempt is the audit record behind the sliding-window rate
// limits on recovery flows.
type VerificationAttempt struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	AttemptType string    `gorm:"size:20;index;not null"` // "reset", "send" or "verify"
	IPAddress   string    `gorm:"size:45"`
	CreatedAt   time.Time `gorm:"index"`
}
