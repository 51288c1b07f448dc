package auth

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/Ryz0n/auth-service/internal/config"
	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/email"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/response"
	"github.com/Ryz0n/auth-service/internal/securecode"
	"github.com/Ryz0n/auth-service/internal/tokens"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const refreshCookieName = "refresh_token"

type Handler struct {
	cfg    *config.Config
	mailer email.Sender
}

func NewHandler(cfg *config.Config, mailer email.Sender) *Handler {
	return &Handler{cfg: cfg, mailer: mailer}
}

func (h *Handler) RegisterHandler(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Username == "" || body.Password == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"username": "username is required",
			"password": "password is required",
		})
	}

	if len(body.Password) < securecode.MinPasswordLength {
		return response.ValidationError(c, map[string]string{
			"password": "password must be at least 8 characters",
		})
	}

	var existing models.User
	if err := database.DB.Where("email = ? OR username = ?", body.Email, body.Username).First(&existing).Error; err == nil {
		return response.Conflict(c, "Email or username already registered")
	}

	u, err := RegisterUser(body.Email, body.Username, body.Password)
	if err != nil {
		return response.InternalError(c, "Failed to create user")
	}

	// Verification email is best effort; the account exists either way and
	// the user can ask for a resend.
	if token, err := securecode.IssueVerificationToken(u.ID); err == nil {
		verifyURL := h.cfg.FrontendURL + "/verify-email?token=" + token
		if err := h.mailer.SendVerificationLink(u.Email, u.Username, verifyURL); err != nil {
			log.Printf("⚠️  Failed to send verification email to user %d: %v", u.ID, err)
		}
	}

	accessToken, err := tokens.IssueAccess(u)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}
	refreshToken, expiresAt, err := tokens.IssueRefresh(u, false)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}

	h.setRefreshCookie(c, refreshToken, expiresAt)

	return response.Created(c, fiber.Map{
		"access_token": accessToken,
		"user":         u,
	}, "Registration successful")
}

func (h *Handler) LoginHandler(c *fiber.Ctx) error {
	var body struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Password == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	user, err := LoginUser(body.Email, body.Password)
	if err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	accessToken, err := tokens.IssueAccess(user)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}
	refreshToken, expiresAt, err := tokens.IssueRefresh(user, body.RememberMe)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}

	h.recordSession(c, user.ID)
	h.setRefreshCookie(c, refreshToken, expiresAt)

	return response.Success(c, fiber.Map{
		"access_token": accessToken,
		"user":         user,
		"expires_in":   int(h.cfg.AccessTTL.Seconds()),
	}, "Login successful")
}

func (h *Handler) RefreshHandler(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		return response.Unauthorized(c, "Invalid refresh token")
	}

	claims, err := tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid refresh token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return response.Unauthorized(c, "Invalid refresh token")
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return response.Unauthorized(c, "Invalid refresh token")
	}

	accessToken, err := tokens.IssueAccess(&user)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}

	return response.Success(c, fiber.Map{
		"access_token": accessToken,
		"user":         user,
		"expires_in":   int(h.cfg.AccessTTL.Seconds()),
	}, "Token refreshed successfully")
}

func (h *Handler) LogoutHandler(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken != "" {
		if err := tokens.Revoke(refreshToken); err != nil {
			return response.InternalError(c, "Failed to logout")
		}
	}

	h.clearRefreshCookie(c)

	return response.Success(c, nil, "Logout successful")
}

func (h *Handler) MeHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return response.NotFound(c, "User")
	}

	return response.Success(c, user, "")
}

func (h *Handler) setRefreshCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/auth",
	})
}

func (h *Handler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/auth",
	})
}

func (h *Handler) recordSession(c *fiber.Ctx, userID uint) {
	metadata, _ := json.Marshal(map[string]string{
		"user_agent": c.Get("User-Agent"),
	})
	session := models.Session{
		UUID:      uuid.NewString(),
		UserID:    userID,
		IPAddress: c.IP(),
		Metadata:  datatypes.JSON(metadata),
	}
	if err := database.DB.Create(&session).Error; err != nil {
		log.Printf("⚠️  Failed to record session for user %d: %v", userID, err)
	}
}
