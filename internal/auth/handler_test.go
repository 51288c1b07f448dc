package auth_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func registerBody(email, username string) map[string]string {
	return map[string]string{
		"email":    email,
		"username": username,
		"password": "password123",
	}
}

// register creates an account through the API and returns the access
// token and the refresh cookie the server handed back.
func register(t *testing.T, app *fiber.App, email, username string) (string, string) {
	t.Helper()

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", registerBody(email, username), "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	data := result.Data.(map[string]interface{})
	accessToken := data["access_token"].(string)

	cookie := testutils.ResponseCookie(resp, "refresh_token")
	assert.NotEmpty(t, cookie)

	return accessToken, cookie
}

func TestRegister(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", registerBody("new@example.com", "newuser"), "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])

	user := data["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "newuser", user["username"])
	assert.Equal(t, false, user["email_verified"])
	assert.Nil(t, user["password"])

	assert.NotEmpty(t, testutils.ResponseCookie(resp, "refresh_token"))

	// Registration queues a verification email
	assert.Contains(t, mailer.LastVerifyURL("new@example.com"), "/verify-email?token=")
}

func TestRegisterValidation(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", map[string]string{"email": "a@b.com"}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "VALIDATION_ERROR")

	resp, err = testutils.MakeRequest(app, "POST", "/auth/register", map[string]string{
		"email":    "a@b.com",
		"username": "shorty",
		"password": "short",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "VALIDATION_ERROR")
}

func TestRegisterConflict(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	register(t, app, "taken@example.com", "takenuser")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", registerBody("taken@example.com", "freshuser"), "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	testutils.AssertError(t, resp, "CONFLICT")

	resp, err = testutils.MakeRequest(app, "POST", "/auth/register", registerBody("fresh@example.com", "takenuser"), "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
	testutils.AssertError(t, resp, "CONFLICT")
}

func TestLogin(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, database.DB, "login@example.com", "loginuser", "password123")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "login@example.com",
		"password": "password123",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	data := result.Data.(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])
	assert.Equal(t, float64(900), data["expires_in"])
	assert.NotEmpty(t, testutils.ResponseCookie(resp, "refresh_token"))

	var session models.Session
	assert.NoError(t, database.DB.Where("user_id = ?", user.ID).First(&session).Error)
	assert.NotEmpty(t, session.UUID)
}

func TestLoginRememberMe(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, database.DB, "login@example.com", "loginuser", "password123")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":       "login@example.com",
		"password":    "password123",
		"remember_me": true,
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var stored models.RefreshToken
	assert.NoError(t, database.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").First(&stored).Error)
	assert.True(t, stored.Persistent)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), stored.ExpiresAt, time.Minute)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, database.DB, "login@example.com", "loginuser", "password123")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "login@example.com",
		"password": "wrongpassword",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")

	// Unknown accounts get the exact same rejection
	resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "password123",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")
}

func TestRefresh(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	_, cookie := register(t, app, "refresh@example.com", "refreshuser")

	resp, err := testutils.MakeRequestWithCookies(app, "POST", "/auth/refresh", nil, "",
		map[string]string{"refresh_token": cookie})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	data := result.Data.(map[string]interface{})
	newAccess := data["access_token"].(string)
	assert.NotEmpty(t, newAccess)

	resp, err = testutils.MakeRequest(app, "GET", "/auth/me", nil, newAccess)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRefreshRejectsMissingAndBogusCookie(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/refresh", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")

	resp, err = testutils.MakeRequestWithCookies(app, "POST", "/auth/refresh", nil, "",
		map[string]string{"refresh_token": "not-a-real-token"})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	_, cookie := register(t, app, "logout@example.com", "logoutuser")

	resp, err := testutils.MakeRequestWithCookies(app, "POST", "/auth/logout", nil, "",
		map[string]string{"refresh_token": cookie})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	testutils.AssertSuccess(t, resp)

	resp, err = testutils.MakeRequestWithCookies(app, "POST", "/auth/refresh", nil, "",
		map[string]string{"refresh_token": cookie})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMeRequiresToken(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	accessToken, _ := register(t, app, "me@example.com", "meuser")

	resp, err := testutils.MakeRequest(app, "GET", "/auth/me", nil, accessToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	user := result.Data.(map[string]interface{})
	assert.Equal(t, "me@example.com", user["email"])

	resp, err = testutils.MakeRequest(app, "GET", "/auth/me", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = testutils.MakeRequest(app, "GET", "/auth/me", nil, "garbage-token")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestForgotPasswordIsEnumerationSafe(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, database.DB, "real@example.com", "realuser", "password123")

	respKnown, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
		map[string]string{"email": "real@example.com"}, "")
	assert.NoError(t, err)
	respUnknown, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
		map[string]string{"email": "ghost@example.com"}, "")
	assert.NoError(t, err)

	assert.Equal(t, http.StatusOK, respKnown.Code)
	assert.Equal(t, http.StatusOK, respUnknown.Code)

	var known, unknown testutils.StandardResponse
	testutils.ParseResponse(t, respKnown, &known)
	testutils.ParseResponse(t, respUnknown, &unknown)
	assert.Equal(t, known.Message, unknown.Message)

	// Only the real account got mail
	assert.NotEmpty(t, mailer.LastResetCode("real@example.com"))
	assert.Empty(t, mailer.LastResetCode("ghost@example.com"))
}

func TestPasswordResetFlow(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	_, cookie := register(t, app, "reset@example.com", "resetuser")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
		map[string]string{"email": "reset@example.com"}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	code := mailer.LastResetCode("reset@example.com")
	assert.Len(t, code, 6)

	resp, err = testutils.MakeRequest(app, "POST", "/auth/reset-password", map[string]string{
		"email":        "reset@example.com",
		"code":         code,
		"new_password": "replacement1",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	testutils.AssertSuccess(t, resp)

	// Every pre-reset session is dead
	resp, err = testutils.MakeRequestWithCookies(app, "POST", "/auth/refresh", nil, "",
		map[string]string{"refresh_token": cookie})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// The new password works, the old one does not
	resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "reset@example.com",
		"password": "replacement1",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
		"email":    "reset@example.com",
		"password": "password123",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestForgotPasswordRateLimit(t *testing.T) {
	app, _ := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, database.DB, "limited@example.com", "limiteduser", "password123")

	for i := 0; i < 3; i++ {
		resp, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
			map[string]string{"email": "limited@example.com"}, "")
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)
	}

	resp, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
		map[string]string{"email": "limited@example.com"}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	testutils.AssertError(t, resp, "TOO_MANY_REQUESTS")

	// The breach created neither a code nor an attempt row
	var resetCount int64
	database.DB.Model(&models.PasswordReset{}).Where("user_id = ?", user.ID).Count(&resetCount)
	assert.Equal(t, int64(3), resetCount)

	var attemptCount int64
	database.DB.Model(&models.VerificationAttempt{}).
		Where("user_id = ? AND attempt_type = ?", user.ID, "reset").Count(&attemptCount)
	assert.Equal(t, int64(3), attemptCount)
}

func TestResetPasswordRejections(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, database.DB, "reset@example.com", "resetuser", "password123")

	resp, err := testutils.MakeRequest(app, "POST", "/auth/forgot-password",
		map[string]string{"email": "reset@example.com"}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	code := mailer.LastResetCode("reset@example.com")

	resp, err = testutils.MakeRequest(app, "POST", "/auth/reset-password", map[string]string{
		"email":        "reset@example.com",
		"code":         code,
		"new_password": "short",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	testutils.AssertError(t, resp, "VALIDATION_ERROR")

	wrongCode := "000000"
	if wrongCode == code {
		wrongCode = "000001"
	}
	resp, err = testutils.MakeRequest(app, "POST", "/auth/reset-password", map[string]string{
		"email":        "reset@example.com",
		"code":         wrongCode,
		"new_password": "replacement1",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")
}

func TestVerifyEmailFlow(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	accessToken, _ := register(t, app, "verify@example.com", "verifyuser")

	verifyURL := mailer.LastVerifyURL("verify@example.com")
	parts := strings.Split(verifyURL, "token=")
	assert.Len(t, parts, 2)
	token := parts[1]
	assert.Len(t, token, 64)

	resp, err := testutils.MakeRequest(app, "GET", "/auth/verification-status", nil, accessToken)
	assert.NoError(t, err)
	var status testutils.StandardResponse
	testutils.ParseResponse(t, resp, &status)
	assert.Equal(t, false, status.Data.(map[string]interface{})["email_verified"])

	resp, err = testutils.MakeRequest(app, "POST", "/auth/verify-email",
		map[string]string{"token": token}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, "verify@example.com", result.Data.(map[string]interface{})["email"])

	resp, err = testutils.MakeRequest(app, "GET", "/auth/verification-status", nil, accessToken)
	assert.NoError(t, err)
	testutils.ParseResponse(t, resp, &status)
	data := status.Data.(map[string]interface{})
	assert.Equal(t, true, data["email_verified"])
	assert.NotNil(t, data["verified_at"])

	// Tokens are single use
	resp, err = testutils.MakeRequest(app, "POST", "/auth/verify-email",
		map[string]string{"token": token}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	testutils.AssertError(t, resp, "UNAUTHORIZED")
}

func TestResendVerification(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	accessToken, _ := register(t, app, "resend@example.com", "resenduser")

	firstURL := mailer.LastVerifyURL("resend@example.com")

	for i := 0; i < 3; i++ {
		resp, err := testutils.MakeRequest(app, "POST", "/auth/resend-verification", nil, accessToken)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Code)
	}

	// A resend replaces the outstanding token
	assert.NotEqual(t, firstURL, mailer.LastVerifyURL("resend@example.com"))

	resp, err := testutils.MakeRequest(app, "POST", "/auth/resend-verification", nil, accessToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	testutils.AssertError(t, resp, "TOO_MANY_REQUESTS")
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	app, mailer := testutils.SetupTestApp(t)
	accessToken, _ := register(t, app, "done@example.com", "doneuser")

	verifyURL := mailer.LastVerifyURL("done@example.com")
	token := strings.Split(verifyURL, "token=")[1]

	resp, err := testutils.MakeRequest(app, "POST", "/auth/verify-email",
		map[string]string{"token": token}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp, err = testutils.MakeRequest(app, "POST", "/auth/resend-verification", nil, accessToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	var result testutils.StandardResponse
	testutils.ParseResponse(t, resp, &result)
	assert.Equal(t, "Email already verified", result.Message)
}
