// Package auth manages the signed-in user: credential exchange against the
// account API and local persistence of the bearer token across restarts.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/axiskeys/storefront/internal/localstore"
)

// TokenKey is the local record holding the persisted bearer token.
const TokenKey = "auth_token"

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// User is the authenticated account.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// APIError is a non-2xx response from the account API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: status %d", e.Status)
	}
	return fmt.Sprintf("auth api: status %d: %s", e.Status, e.Message)
}

// Client talks to the account API and holds the current session.
//
// The bearer token is mirrored into the local store so a restart can restore
// the session without re-entering credentials.
//
// Thread-safety: all methods are safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	kv   *localstore.Store

	mu    sync.Mutex
	token string
	user  *User
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client. Used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates an account client for the given API base URL, persisting
// session tokens into kv.
func NewClient(baseURL string, kv *localstore.Store, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		kv:   kv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token implements the bearer token source used by the cart client.
func (c *Client) Token(context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.token != ""
}

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

type sessionPayload struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login exchanges credentials for a session and persists the token.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	payload, err := c.sessionCall(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return User{}, err
	}
	return c.install(ctx, payload)
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	payload, err := c.sessionCall(ctx, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return User{}, err
	}
	return c.install(ctx, payload)
}

// Logout revokes the session. The local token is discarded even when the
// server call fails, so a dead backend can never pin a user signed in.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil
	}

	err := c.revoke(ctx, token)
	if err != nil {
		slog.Warn("auth logout failed remotely, discarding session locally", "error", err)
	}
	c.forget(ctx)
	return err
}

// Restore loads the persisted token and validates it against the account
// API. A rejected token is discarded. Returns the restored user, or nil when
// no valid session exists.
func (c *Client) Restore(ctx context.Context) (*User, error) {
	raw, err := c.kv.Get(ctx, TokenKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read auth token: %w", err)
	}
	token := string(raw)
	if token == "" {
		return nil, nil
	}

	user, err := c.profile(ctx, token)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			slog.Info("stored auth token rejected, discarding")
			c.forget(ctx)
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.token = token
	c.user = &user
	c.mu.Unlock()
	return &user, nil
}

// install stores a fresh session in memory and on disk.
func (c *Client) install(ctx context.Context, p sessionPayload) (User, error) {
	c.mu.Lock()
	c.token = p.Token
	u := p.User
	c.user = &u
	c.mu.Unlock()

	if err := c.kv.Put(ctx, TokenKey, []byte(p.Token)); err != nil {
		// The session still works for this run; only the restart path is lost.
		slog.Warn("persist auth token failed", "error", err)
	}
	return p.User, nil
}

// forget drops the session from memory and disk.
func (c *Client) forget(ctx context.Context) {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()

	if err := c.kv.Delete(ctx, TokenKey); err != nil {
		slog.Warn("clear auth token failed", "error", err)
	}
}

func (c *Client) sessionCall(ctx context.Context, path string, body map[string]string) (sessionPayload, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return sessionPayload{}, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return sessionPayload{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return sessionPayload{}, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return sessionPayload{}, err
	}

	var payload struct {
		Data sessionPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return sessionPayload{}, fmt.Errorf("decode auth response: %w", err)
	}
	if payload.Data.Token == "" {
		return sessionPayload{}, fmt.Errorf("auth response missing token")
	}
	return payload.Data, nil
}

func (c *Client) profile(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/auth/me", nil)
	if err != nil {
		return User{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("GET /auth/me: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return User{}, err
	}

	var payload struct {
		Data User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return User{}, fmt.Errorf("decode profile response: %w", err)
	}
	return payload.Data, nil
}

func (c *Client) revoke(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST /auth/logout: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
