package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ryz0n/auth-service/internal/config"
	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/server"
	"github.com/Ryz0n/auth-service/internal/tokens"
	"github.com/Ryz0n/auth-service/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err, "Failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.BlacklistedToken{},
		&models.PasswordReset{},
		&models.EmailVerification{},
		&models.VerificationAttempt{},
		&models.Session{},
	)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

func TestConfig() *config.Config {
	return &config.Config{
		AccessSecret:  "test_access_secret_0123456789_0123456789",
		RefreshSecret: "test_refresh_secret_0123456789_0123456789",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		PersistentTTL: 30 * 24 * time.Hour,
		FrontendURL:   "http://localhost:5173",
	}
}

// MailRecorder captures outgoing mail so tests can read codes and links
// that are never exposed through the API.
type MailRecorder struct {
	mu         sync.Mutex
	ResetCodes map[string]string
	VerifyURLs map[string]string
}

func NewMailRecorder() *MailRecorder {
	return &MailRecorder{
		ResetCodes: make(map[string]string),
		VerifyURLs: make(map[string]string),
	}
}

func (m *MailRecorder) SendResetCode(to, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCodes[to] = code
	return nil
}

func (m *MailRecorder) SendVerificationLink(to, username, verifyURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyURLs[to] = verifyURL
	return nil
}

func (m *MailRecorder) LastResetCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ResetCodes[to]
}

func (m *MailRecorder) LastVerifyURL(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.VerifyURLs[to]
}

func SetupTestApp(t *testing.T) (*fiber.App, *MailRecorder) {
	db := TestDB(t)
	database.DB = db

	cfg := TestConfig()
	tokens.Init(cfg)

	mailer := NewMailRecorder()
	app := server.New(cfg, mailer)
	return app, mailer
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, username, password string) *models.User {
	hashedPassword, _ := utils.HashPassword(password)

	user := &models.User{
		Email:    email,
		Username: username,
		Password: hashedPassword,
	}

	err := db.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	return user
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	return MakeRequestWithCookies(app, method, url, body, token, nil)
}

func MakeRequestWithCookies(app *fiber.App, method, url string, body interface{}, token string, cookies map[string]string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

// ResponseCookie returns the named cookie set by the response, or "".
func ResponseCookie(resp *httptest.ResponseRecorder, name string) string {
	parsed := http.Response{Header: resp.Header()}
	for _, c := range parsed.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
}
