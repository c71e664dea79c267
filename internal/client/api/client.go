// Package api is the desktop client for the reprint hub auth endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const requestedWith = "ReprintDesktop"

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

// SSOCode is a one-time browser hand-off code.
type SSOCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClientSettings are server-provided settings for local session handling.
type ClientSettings struct {
	SessionLifetimeDays int `json:"session_lifetime_days"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL, which must already be normalized.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL is the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request kinds change how a 401 is reported.
type kind int

const (
	kindRegular kind = iota
	kindLogin
)

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out, kindLogin); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil, kindRegular)
}

func (c *Client) Refresh(ctx context.Context, token string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", token, nil, &out, kindRegular); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, token string) (*domain.Profile, error) {
	var out struct {
		User domain.Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out, kindRegular); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Validate returns the token owner, or ErrSessionExpired when the server
// rejects the token.
func (c *Client) Validate(ctx context.Context, token string) (*domain.Profile, error) {
	var out struct {
		Valid bool           `json:"valid"`
		User  domain.Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/validate", token, nil, &out, kindRegular); err != nil {
		return nil, err
	}
	if !out.Valid {
		return nil, ErrSessionExpired
	}
	return &out.User, nil
}

func (c *Client) GenerateSSOCode(ctx context.Context, token string) (*SSOCode, error) {
	var out SSOCode
	if err := c.do(ctx, http.MethodPost, "/api/auth/sso-code", token, nil, &out, kindRegular); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClientSettings(ctx context.Context) (*ClientSettings, error) {
	var out ClientSettings
	if err := c.do(ctx, http.MethodGet, "/api/client-settings", "", nil, &out, kindRegular); err != nil {
		return nil, err
	}
	return &out, nil
}

// SSOCallbackURL is the browser URL that redeems code.
func (c *Client) SSOCallbackURL(code string) string {
	return c.baseURL + "/sso/callback?code=" + code
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any, k kind) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", requestedWith)
	if token != "" && k != kindLogin {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return translateTransport(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return translateTransport(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized && k == kindLogin:
		return ErrInvalidCredentials
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrSessionExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Message == "" {
		envelope.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return &APIError{Status: status, Code: envelope.Error, Message: envelope.Message}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
