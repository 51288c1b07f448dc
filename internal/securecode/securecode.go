package securecode

import (
	"errors"
	"log"
	"time"

	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/tokens"
	"github.com/Ryz0n/auth-service/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ResetCodeDigits = 6
	ResetCodeExpiry = 15 * time.Minute

	VerificationTokenBytes = 32 // 64 hex characters
	VerificationExpiry     = 24 * time.Hour

	MinPasswordLength = 8
)

var (
	// ErrInvalidCode covers unknown email, missing code, expired code and
	// wrong code alike. One error, no oracle.
	ErrInvalidCode = errors.New("invalid or expired reset code")

	ErrInvalidOrExpired = errors.New("invalid or expired verification token")

	ErrPasswordTooShort  = errors.New("password does not meet the minimum length")
	ErrPasswordEqualCode = errors.New("password must not equal the reset code")
)

// IssueResetCode generates a 6-digit code for the user and stores its
// bcrypt hash with a 15 minute expiry. Any prior unused codes are
// invalidated in the same transaction, so at most one code is ever
// redeemable. The plaintext is returned only to the caller; it is never
// written to a log or a response.
func IssueResetCode(user *models.User) (string, error) {
	code, err := utils.NumericCode(ResetCodeDigits)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordReset{}).
			Where("user_id = ? AND used = ?", user.ID, false).
			Update("used", true).Error; err != nil {
			return err
		}

		reset := models.PasswordReset{
			UserID:    user.ID,
			CodeHash:  string(hash),
			ExpiresAt: time.Now().Add(ResetCodeExpiry),
		}
		return tx.Create(&reset).Error
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

// RedeemResetCode exchanges a valid code for a new password. On success
// the password update, the code consumption and the revocation of every
// refresh token the user holds happen in one transaction.
func RedeemResetCode(email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if newPassword == code {
		return ErrPasswordEqualCode
	}

	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return ErrInvalidCode
	}

	var reset models.PasswordReset
	if err := database.DB.
		Where("user_id = ? AND used = ? AND expires_at > ?", user.ID, false, time.Now()).
		Order("created_at DESC").
		First(&reset).Error; err != nil {
		return ErrInvalidCode
	}

	if bcrypt.CompareHashAndPassword([]byte(reset.CodeHash), []byte(code)) != nil {
		log.Printf("⚠️  Failed reset code attempt for user %d", user.ID)
		return ErrInvalidCode
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("password", hashedPassword).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.PasswordReset{}).
			Where("id = ?", reset.ID).
			Update("used", true).Error; err != nil {
			return err
		}

		// Changing the password ends every session, not just this one.
		return tokens.RevokeAllForUser(tx, user.ID)
	})
}

// IssueVerificationToken creates a 256-bit random token with a 24 hour
// expiry, replacing any token the user already has.
func IssueVerificationToken(userID uint) (string, error) {
	token, err := utils.HexToken(VerificationTokenBytes)
	if err != nil {
		return "", err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.EmailVerification{}).Error; err != nil {
			return err
		}

		verification := models.EmailVerification{
			UserID:    userID,
			Token:     token,
			ExpiresAt: time.Now().Add(VerificationExpiry),
		}
		return tx.Create(&verification).Error
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// RedeemVerificationToken marks the owning user verified and consumes the
// token. A second redemption with the same token fails.
func RedeemVerificationToken(token string) (*models.User, error) {
	var verification models.EmailVerification
	if err := database.DB.
		Where("token = ? AND expires_at > ?", token, time.Now()).
		First(&verification).Error; err != nil {
		return nil, ErrInvalidOrExpired
	}

	var user models.User
	if err := database.DB.First(&user, verification.UserID).Error; err != nil {
		return nil, ErrInvalidOrExpired
	}

	now := time.Now()
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"email_verified": true,
				"verified_at":    now,
			}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.EmailVerification{}, verification.ID).Error
	})
	if err != nil {
		return nil, err
	}

	user.EmailVerified = true
	user.VerifiedAt = &now
	return &user, nil
}
