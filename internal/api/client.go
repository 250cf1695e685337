package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/session"
)

// Config holds api client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default api client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// Client talks JSON to the Safarnama REST backend. Cookies persist across
// calls so the backend session survives between requests.
type Client struct {
	base     string
	http     *http.Client
	sessions *session.Cache
	logger   log.Log

	Auth   *AuthService
	Genres *GenreService
	Blogs  *BlogService
	Users  *UserService
}

// New builds a client. sessions may be nil when no cache should be kept.
func New(config Config, sessions *session.Cache, logger log.Log) (*Client, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, config.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	c := &Client{
		base:     strings.TrimRight(u.String(), "/"),
		http:     &http.Client{Jar: jar, Timeout: timeout},
		sessions: sessions,
		logger:   logger.With(log.String("component", "api")),
	}
	c.Auth = &AuthService{c: c}
	c.Genres = &GenreService{c: c}
	c.Blogs = &BlogService{c: c}
	c.Users = &UserService{c: c}
	return c, nil
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded from
// a non-empty 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request", log.String("method", method), log.String("path", path))
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("API request failed", log.String("path", path), log.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("API response",
		log.String("path", path),
		log.Int("status", resp.StatusCode),
		log.Duration("elapsed", time.Since(started)))

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
		c.logger.Error("API error", log.String("path", path), log.Int("status", resp.StatusCode), log.String("message", apiErr.Message))
		if c.sessions != nil && c.sessions.Invalidate(path, resp.StatusCode) {
			c.logger.Info("Authentication error, session cleared", log.String("redirect", session.ExpiredRedirect))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(raw []byte, fallback string) string {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
		return s
	}
	return fallback
}
