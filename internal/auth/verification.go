package auth

import (
	"errors"
	"log"

	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/ratelimit"
	"github.com/Ryz0n/auth-service/internal/response"
	"github.com/Ryz0n/auth-service/internal/securecode"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) VerifyEmailHandler(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Token == "" {
		return response.ValidationError(c, map[string]string{
			"token": "token is required",
		})
	}

	user, err := securecode.RedeemVerificationToken(body.Token)
	if err != nil {
		if errors.Is(err, securecode.ErrInvalidOrExpired) {
			return response.Unauthorized(c, "Invalid or expired verification token")
		}
		return response.InternalError(c, "Failed to verify email")
	}

	if err := ratelimit.Record(user.ID, ratelimit.AttemptVerify, c.IP()); err != nil {
		log.Printf("⚠️  Failed to record verify attempt for user %d: %v", user.ID, err)
	}

	return response.Success(c, fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	}, "Email verified successfully")
}

func (h *Handler) ResendVerificationHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return response.NotFound(c, "User")
	}

	if user.EmailVerified {
		return response.Success(c, nil, "Email already verified")
	}

	if err := ratelimit.Check(user.ID, ratelimit.AttemptSend, ratelimit.ResendVerificationPolicy); err != nil {
		var limited *ratelimit.RateLimitedError
		if errors.As(err, &limited) {
			return response.TooManyRequests(c, int(limited.RetryAfter.Seconds())+1)
		}
		return response.InternalError(c, "Failed to resend verification")
	}

	if err := ratelimit.Record(user.ID, ratelimit.AttemptSend, c.IP()); err != nil {
		return response.InternalError(c, "Failed to resend verification")
	}

	token, err := securecode.IssueVerificationToken(user.ID)
	if err != nil {
		return response.InternalError(c, "Failed to resend verification")
	}

	verifyURL := h.cfg.FrontendURL + "/verify-email?token=" + token
	if err := h.mailer.SendVerificationLink(user.Email, user.Username, verifyURL); err != nil {
		log.Printf("⚠️  Failed to send verification email to user %d: %v", user.ID, err)
	}

	return response.Success(c, nil, "Verification email sent")
}

func (h *Handler) VerificationStatusHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return response.NotFound(c, "User")
	}

	return response.Success(c, fiber.Map{
		"email_verified": user.EmailVerified,
		"verified_at":    user.VerifiedAt,
	}, "")
}
