// Package authclient is the consumer-side companion of the auth server.
// It keeps the access token in memory, carries the refresh cookie in a
// jar, and serializes token refreshes so that any number of concurrently
// failing calls produce at most one refresh request.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"
)

// ErrSessionExpired is returned once a refresh fails; the client's
// credential state is cleared and the caller must log in again.
var ErrSessionExpired = errors.New("session expired, login required")

const refreshTimeout = 10 * time.Second

type User struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	EmailVerified bool   `json:"email_verified"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	accessToken string

	coord coordinator
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Jar: jar},
	}, nil
}

func (c *Client) setAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) Register(ctx context.Context, email, username, password string) (*User, error) {
	body := map[string]string{"email": email, "username": username, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*User, error) {
	body := map[string]interface{}{"email": email, "password": password, "remember_me": rememberMe}
	return c.authenticate(ctx, "/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*User, error) {
	resp, err := c.post(ctx, path, body, "")
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}

	var data struct {
		AccessToken string `json:"access_token"`
		User        *User  `json:"user"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, err
	}

	c.setAccessToken(data.AccessToken)
	return data.User, nil
}

// Logout revokes the refresh token server-side and clears local state.
// Local state is cleared even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "/auth/logout", nil, c.AccessToken())
	c.setAccessToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Do performs an authenticated request. On a 401 it refreshes the access
// token (single-flight across all callers) and retries the original
// request exactly once. 403s and other failures are returned as-is:
// only a stale-credential signal triggers a refresh.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	status, resp, err := c.send(ctx, method, path, body, c.AccessToken())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		token, refreshErr := c.coord.awaitFreshToken(c.refresh)
		if refreshErr != nil {
			c.setAccessToken("")
			return ErrSessionExpired
		}
		c.setAccessToken(token)

		status, resp, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		if resp != nil && resp.Error != nil {
			return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", status)
	}

	if out != nil && resp != nil && resp.Data != nil {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// refresh performs the actual refresh network call. It runs on a detached
// context with a hard timeout so a hung refresh cannot strand the waiters
// queued behind it, and it is never routed through Do: refresh requests
// must not trigger further refreshes.
func (c *Client) refresh() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	resp, err := c.post(ctx, "/auth/refresh", nil, "")
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", errors.New("refresh response missing access token")
	}

	return data.AccessToken, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, token string) (*apiResponse, error) {
	_, resp, err := c.send(ctx, http.MethodPost, path, body, token)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, token string) (int, *apiResponse, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		bodyReader = bytes.NewReader(encoded)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return httpResp.StatusCode, nil, nil
	}
	return httpResp.StatusCode, &resp, nil
}
