// ABOUTME: HTTP client for the FastLearners BFF
// ABOUTME: Wraps API calls with envelope decoding and CLI-friendly errors

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// Client is the API client for the FastLearners BFF
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *SessionJar
}

type Option func(*Client)

// WithSessionJar keeps cookies in jar so the session survives between runs.
func WithSessionJar(jar *SessionJar) Option {
	return func(c *Client) {
		c.jar = jar
		c.httpClient.Jar = jar
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Save persists session cookies when a jar is attached.
func (c *Client) Save() error {
	if c.jar == nil {
		return nil
	}
	return c.jar.Save()
}

// APIError is a failure envelope returned by the backend.
type APIError struct {
	Status    int
	Message   string
	ErrorCode string
	Fields    map[string][]string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("backend error (%d %s): %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// envelope is the response shape shared by local and relayed routes.
type envelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Content   json.RawMessage     `json:"content"`
	Errors    map[string][]string `json:"errors"`
	ErrorCode string              `json:"errorCode"`
	User      *models.User        `json:"user"`
}

// HealthResponse represents the /api/health content
type HealthResponse struct {
	Status        string      `json:"status"`
	Environment   string      `json:"environment"`
	UpstreamAPI   string      `json:"upstream_api"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	RateLimiting  bool        `json:"rate_limiting"`
	Tunnel        string      `json:"tunnel"`
	CacheStatus   CacheStatus `json:"cache_status"`
}

// CacheStatus represents cache state in health response
type CacheStatus struct {
	Entries    int   `json:"entries"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// LessonFilter selects lessons for the superadmin list.
type LessonFilter struct {
	Class   string `json:"class"`
	Subject string `json:"subject"`
	Term    string `json:"term"`
	Week    string `json:"week"`
}

// UploadResult is the backend's reply to a lesson file upload.
type UploadResult struct {
	Message   string            `json:"message"`
	Content   json.RawMessage   `json:"content"`
	Conflicts []json.RawMessage `json:"conflicts"`
}

// Health calls the /api/health endpoint
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/health", nil, "")
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := json.Unmarshal(env.Content, &health); err != nil {
		return nil, fmt.Errorf("invalid response from backend: %w", err)
	}
	return &health, nil
}

// Login exchanges credentials for a session and returns the user.
func (c *Client) Login(ctx context.Context, emailPhone, password string) (*models.User, error) {
	body, _ := json.Marshal(models.LoginRequest{EmailPhone: emailPhone, Password: password})
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.New("login reply carried no user")
	}
	return env.User, nil
}

// GoogleCallback completes a Google sign-in with the OAuth callback query.
func (c *Client) GoogleCallback(ctx context.Context, rawQuery string) (*models.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/auth/google/callback?"+rawQuery, nil, "")
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: nonEmpty(env.Message, "Google authentication failed")}
	}
	return env.User, nil
}

// Session checks the stored session and returns the fresh user.
func (c *Client) Session(ctx context.Context) (*models.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, "")
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

// Logout clears the session on the backend and in the jar.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, "")
	return err
}

// Lesson fetches one lesson by id.
func (c *Client) Lesson(ctx context.Context, id int64) (json.RawMessage, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/superadmin/lessons/"+strconv.FormatInt(id, 10), nil, "")
	if err != nil {
		return nil, err
	}
	return env.Content, nil
}

// ListLessons returns the lessons matching filter.
func (c *Client) ListLessons(ctx context.Context, filter LessonFilter) (json.RawMessage, error) {
	body, _ := json.Marshal(filter)
	env, err := c.do(ctx, http.MethodPost, "/api/superadmin/lessons/list", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	return env.Content, nil
}

// Upload sends the files for kind, keyed by the field each belongs in.
func (c *Client) Upload(ctx context.Context, kind string, files map[models.FileRole]string) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for role, path := range files {
		if err := addFilePart(mw, string(role), path); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	data, status, err := c.send(ctx, http.MethodPost, "/api/uploads/"+kind, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, decodeError(data, status)
	}
	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid response from backend: %w", err)
	}
	return &result, nil
}

func addFilePart(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// do sends a request and decodes the reply envelope. Non-2xx replies become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*envelope, error) {
	data, status, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, decodeError(data, status)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid response from backend: %w", err)
	}
	return &env, nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, 0, fmt.Errorf("request canceled")
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, fmt.Errorf("request timed out")
		}
		return nil, 0, fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func decodeError(data []byte, status int) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &APIError{Status: status, Message: fmt.Sprintf("backend returned status %d", status)}
	}
	return &APIError{
		Status:    status,
		Message:   nonEmpty(env.Message, http.StatusText(status)),
		ErrorCode: env.ErrorCode,
		Fields:    env.Errors,
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
