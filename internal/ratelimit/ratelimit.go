package ratelimit

import (
	"fmt"
	"time"

	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
)

const (
	AttemptReset  = "reset"
	AttemptSend   = "send"
	AttemptVerify = "verify"
)

// Policy is a sliding-window cap per (user, attempt type). The window is
// evaluated by counting stored attempt rows newer than now-Window, so
// there are no fixed-bucket boundary artifacts.
type Policy struct {
	Max    int
	Window time.Duration
}

var (
	PasswordResetPolicy      = Policy{Max: 3, Window: 5 * time.Minute}
	ResendVerificationPolicy = Policy{Max: 3, Window: time.Hour}
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// Check returns a *RateLimitedError when the user has exhausted the
// policy's window. A breach has no side effects: no row is written and
// the caller must not proceed with the operation.
func Check(userID uint, attemptType string, p Policy) error {
	since := time.Now().Add(-p.Window)

	var count int64
	if err := database.DB.Model(&models.VerificationAttempt{}).
		Where("user_id = ? AND attempt_type = ? AND created_at > ?", userID, attemptType, since).
		Count(&count).Error; err != nil {
		return err
	}

	if count < int64(p.Max) {
		return nil
	}

	// The window reopens when the oldest in-window attempt ages out.
	var oldest models.VerificationAttempt
	retryAfter := p.Window
	if err := database.DB.
		Where("user_id = ? AND attempt_type = ? AND created_at > ?", userID, attemptType, since).
		Order("created_at ASC").
		First(&oldest).Error; err == nil {
		retryAfter = time.Until(oldest.CreatedAt.Add(p.Window))
		if retryAfter < 0 {
			retryAfter = 0
		}
	}

	return &RateLimitedError{RetryAfter: retryAfter}
}

// Record stores an attempt row. Call it only after Check allowed the
// operation to proceed.
func Record(userID uint, attemptType, ipAddress string) error {
	attempt := models.VerificationAttempt{
		UserID:      userID,
		AttemptType: attemptType,
		IPAddress:   ipAddress,
	}
	return database.DB.Create(&attempt).Error
}
