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

const forgotPasswordMessage = "If an account exists, a reset code has been sent"

// ForgotPasswordHandler answers identically whether or not the email is
// registered. The only divergent outcome is 429 once a real account
// exhausts its window.
func (h *Handler) ForgotPasswordHandler(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" {
		return response.ValidationError(c, map[string]string{
			"email": "email is required",
		})
	}

	var user models.User
	if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
		return response.Success(c, nil, forgotPasswordMessage)
	}

	if err := ratelimit.Check(user.ID, ratelimit.AttemptReset, ratelimit.PasswordResetPolicy); err != nil {
		var limited *ratelimit.RateLimitedError
		if errors.As(err, &limited) {
			return response.TooManyRequests(c, int(limited.RetryAfter.Seconds())+1)
		}
		return response.InternalError(c, "Failed to process request")
	}

	if err := ratelimit.Record(user.ID, ratelimit.AttemptReset, c.IP()); err != nil {
		return response.InternalError(c, "Failed to process request")
	}

	code, err := securecode.IssueResetCode(&user)
	if err != nil {
		return response.InternalError(c, "Failed to process request")
	}

	if err := h.mailer.SendResetCode(user.Email, user.Username, code); err != nil {
		log.Printf("⚠️  Failed to send reset code to user %d: %v", user.ID, err)
	}

	return response.Success(c, nil, forgotPasswordMessage)
}

func (h *Handler) ResetPasswordHandler(c *fiber.Ctx) error {
	var body struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Code == "" || body.NewPassword == "" {
		return response.ValidationError(c, map[string]string{
			"email":        "email is required",
			"code":         "code is required",
			"new_password": "new_password is required",
		})
	}

	err := securecode.RedeemResetCode(body.Email, body.Code, body.NewPassword)
	switch {
	case err == nil:
		return response.Success(c, nil, "Password reset successful")
	case errors.Is(err, securecode.ErrPasswordTooShort):
		return response.ValidationError(c, map[string]string{
			"new_password": "password must be at least 8 characters",
		})
	case errors.Is(err, securecode.ErrPasswordEqualCode):
		return response.ValidationError(c, map[string]string{
			"new_password": "password must not equal the reset code",
		})
	case errors.Is(err, securecode.ErrInvalidCode):
		return response.Unauthorized(c, "Invalid or expired reset code")
	default:
		return response.InternalError(c, "Failed to reset password")
	}
}
