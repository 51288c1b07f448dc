package tokens

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Ryz0n/auth-service/internal/config"
	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// Verification failures collapse to these two errors on purpose: callers
// must not be able to distinguish a forged token from a revoked one.
var (
	ErrInvalidAccess  = errors.New("invalid access token")
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

const blacklistRetention = 7 * 24 * time.Hour

var (
	accessKey     []byte
	refreshKey    []byte
	accessTTL     = 15 * time.Minute
	refreshTTL    = 7 * 24 * time.Hour
	persistentTTL = 30 * 24 * time.Hour
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Default().Println("No .env file found")
	}
	accessSecret := os.Getenv("ACCESS_TOKEN_SECRET")
	if accessSecret == "" {
		accessSecret = "test_secret_key_minimum_32_characters_long_for_testing_only"
	}
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if refreshSecret == "" {
		refreshSecret = "test_secret_key_minimum_32_characters_long_for_testing_only_refresh"
	}

	accessKey = []byte(accessSecret)
	refreshKey = []byte(refreshSecret)
}

// Init overrides the package keys and TTLs from loaded configuration.
func Init(cfg *config.Config) {
	accessKey = []byte(cfg.AccessSecret)
	refreshKey = []byte(cfg.RefreshSecret)
	accessTTL = cfg.AccessTTL
	refreshTTL = cfg.RefreshTTL
	persistentTTL = cfg.PersistentTTL
}

type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Kind       string `json:"kind"`
	Persistent bool   `json:"persistent"`
	jwt.RegisteredClaims
}

// RefreshTTL returns the refresh token lifetime for the given
// "remember me" choice: 7 days normally, 30 days when persistent.
func RefreshTTL(persistent bool) time.Duration {
	if persistent {
		return persistentTTL
	}
	return refreshTTL
}

// IssueAccess mints a short-lived stateless access token. No side effects.
func IssueAccess(user *models.User) (string, error) {
	claims := AccessClaims{
		Email:    user.Email,
		Username: user.Username,
		Kind:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(user.ID)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(accessKey)
}

// IssueRefresh mints a refresh token signed with the refresh key and
// persists it. Returns the token and its expiry (the cookie mirrors it).
func IssueRefresh(user *models.User, persistent bool) (string, time.Time, error) {
	expiresAt := time.Now().Add(RefreshTTL(persistent))

	claims := RefreshClaims{
		Kind:       "refresh",
		Persistent: persistent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(user.ID)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}

	rt := models.RefreshToken{
		Token:      token,
		UserID:     user.ID,
		ExpiresAt:  expiresAt,
		Persistent: persistent,
	}
	if err := database.DB.Create(&rt).Error; err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// VerifyAccess checks signature and expiry only; it is stateless.
func VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidAccess
		}
		return accessKey, nil
	})
	if err != nil || !token.Valid || claims.Kind != "access" {
		return nil, ErrInvalidAccess
	}
	return claims, nil
}

// VerifyRefresh requires three things at once: a valid signature, an
// unexpired store row for the literal token, and no blacklist entry.
func VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidRefresh
		}
		return refreshKey, nil
	})
	if err != nil || !token.Valid || claims.Kind != "refresh" {
		return nil, ErrInvalidRefresh
	}

	var stored models.RefreshToken
	if err := database.DB.
		Where("token = ? AND expires_at > ?", tokenStr, time.Now()).
		First(&stored).Error; err != nil {
		return nil, ErrInvalidRefresh
	}

	var blacklisted int64
	if err := database.DB.Model(&models.BlacklistedToken{}).
		Where("token = ?", tokenStr).
		Count(&blacklisted).Error; err != nil {
		return nil, ErrInvalidRefresh
	}
	if blacklisted > 0 {
		return nil, ErrInvalidRefresh
	}

	return claims, nil
}

// Revoke blacklists a refresh token and removes its store row. Calling it
// twice for the same token is a no-op, not an error.
func Revoke(tokenStr string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.BlacklistedToken{Token: tokenStr, BlacklistedAt: time.Now()}
		if err := tx.Where("token = ?", tokenStr).FirstOrCreate(&entry).Error; err != nil {
			return err
		}
		return tx.Where("token = ?", tokenStr).Delete(&models.RefreshToken{}).Error
	})
}

// RevokeAllForUser invalidates every live refresh token of a user. Runs on
// the given handle so password-reset redemption can call it inside its
// transaction.
func RevokeAllForUser(db *gorm.DB, userID uint) error {
	var live []models.RefreshToken
	if err := db.Where("user_id = ?", userID).Find(&live).Error; err != nil {
		return err
	}

	for _, rt := range live {
		entry := models.BlacklistedToken{Token: rt.Token, BlacklistedAt: time.Now()}
		if err := db.Where("token = ?", rt.Token).FirstOrCreate(&entry).Error; err != nil {
			return err
		}
	}

	return db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// SweepExpired deletes expired refresh tokens and blacklist entries past
// the retention window. Safe to run concurrently with normal traffic:
// every verification re-checks expiry and blacklist state itself.
func SweepExpired() {
	result := database.DB.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
	if result.RowsAffected > 0 {
		log.Printf("🧹 Cleaned up %d expired refresh tokens", result.RowsAffected)
	}

	result = database.DB.Where("blacklisted_at < ?", time.Now().Add(-blacklistRetention)).Delete(&models.BlacklistedToken{})
	if result.RowsAffected > 0 {
		log.Printf("🧹 Cleaned up %d stale blacklist entries", result.RowsAffected)
	}
}
