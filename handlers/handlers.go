// ABOUTME: HTTP handlers for the FastLearners BFF relay routes
// ABOUTME: Holds shared dependencies and the JSON response helpers every route uses

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cache"
	"github.com/travis-wayne/fastlearners-frontend-sub005/config"
	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/middleware"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// Fixed per-route upstream deadlines.
const (
	SessionCheckTimeout = 7 * time.Second
	ProfileTimeout      = 15 * time.Second
)

// maxJSONBody caps JSON request bodies read by relay routes.
const maxJSONBody = 1 << 20

type Handler struct {
	cfg       *config.Config
	cache     *cache.Cache
	codec     *services.CookieCodec
	upstream  *services.UpstreamClient
	subjects  *services.SubjectService
	startedAt time.Time

	authLimiter    *middleware.RateLimiter
	uploadLimiter  *middleware.RateLimiter
	defaultLimiter *middleware.RateLimiter

	sessionCheckTimeout time.Duration
	profileTimeout      time.Duration
}

// Option customizes a Handler.
type Option func(*Handler)

// WithUpstreamClient replaces the upstream client (useful for testing).
func WithUpstreamClient(c *services.UpstreamClient) Option {
	return func(h *Handler) {
		h.upstream = c
	}
}

// WithCookieCodec replaces the cookie codec, e.g. to inject a clock.
func WithCookieCodec(c *services.CookieCodec) Option {
	return func(h *Handler) {
		h.codec = c
	}
}

func NewHandler(cfg *config.Config, c *cache.Cache, opts ...Option) *Handler {
	if cfg == nil {
		cfg = fallbackConfig()
	}
	if c == nil {
		c = cache.New(cfg.SubjectCacheTTLDuration())
	}

	h := &Handler{
		cfg:                 cfg,
		cache:               c,
		codec:               services.NewCookieCodec(cfg.CookieSecure, cfg.IsProduction()),
		startedAt:           time.Now(),
		sessionCheckTimeout: SessionCheckTimeout,
		profileTimeout:      ProfileTimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.upstream == nil {
		upstreamOpts := []services.UpstreamOption{
			services.WithRateLimit(cfg.UpstreamRPS, cfg.UpstreamBurst),
			services.WithDebug(cfg.DebugAuth),
		}
		// Tunnel is optional
		if cfg.UpstreamAllProxy != "" {
			dial, err := services.NewTunnelDialer(cfg.UpstreamAllProxy)
			if err != nil {
				slog.Error("Upstream tunnel disabled", "error", err)
			} else {
				upstreamOpts = append(upstreamOpts, services.WithDialer(dial))
			}
		}
		h.upstream = services.NewUpstreamClient(cfg.UpstreamURL, cfg.UpstreamTimeoutDuration(), upstreamOpts...)
	}
	h.subjects = services.NewSubjectService(h.upstream, c)

	if cfg.RateLimitEnabled {
		h.authLimiter = middleware.NewRateLimiter(cfg.RateLimitAuth, time.Minute)
		h.uploadLimiter = middleware.NewRateLimiter(cfg.RateLimitUpload, time.Minute)
		h.defaultLimiter = middleware.NewRateLimiter(cfg.RateLimitDefault, time.Minute)
	}

	return h
}

// fallbackConfig mirrors config.Load defaults for handlers built without one.
func fallbackConfig() *config.Config {
	return &config.Config{
		Port:             "8080",
		Env:              "development",
		UpstreamURL:      config.DefaultUpstreamURL,
		UpstreamTimeout:  30,
		UpstreamBurst:    20,
		RateLimitAuth:    10,
		RateLimitUpload:  10,
		RateLimitDefault: 300,
		SubjectCacheTTL:  int(services.DefaultSubjectCacheTTL / time.Second),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes a failure envelope tagged with the request ID.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	h.writeJSON(w, code, models.Envelope{
		Success:   false,
		Message:   message,
		Code:      code,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// writeAPIError renders err as an envelope. Unknown errors become network errors.
func (h *Handler) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := models.AsAPIError(err)
	log := logger.FromContext(r.Context())
	switch apiErr.Kind {
	case models.KindTimeout, models.KindNetwork:
		log.Warn("Upstream call failed", "kind", apiErr.Kind, "error", apiErr)
	default:
		log.Debug("Request failed", "kind", apiErr.Kind, "status", apiErr.HTTPStatus(), "message", apiErr.Message)
	}
	h.writeJSON(w, apiErr.HTTPStatus(), apiErr.Envelope(middleware.RequestIDFromContext(r.Context())))
}

// writeUpstreamError renders a non-2xx upstream reply as a sanitized envelope
// that keeps only the upstream message and status.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, resp *services.UpstreamResponse, fallback string) {
	apiErr := resp.Err(fallback)
	apiErr.Body = nil
	if resp.Envelope != nil && len(resp.Envelope.Errors) > 0 {
		apiErr.Fields = resp.Envelope.Errors
	}
	h.writeAPIError(w, r, apiErr)
}

// relay copies an upstream reply to the client verbatim.
func (h *Handler) relay(w http.ResponseWriter, resp *services.UpstreamResponse) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// readJSONObject reads the request body and requires a JSON object.
func readJSONObject(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return nil, models.ErrValidation(http.StatusBadRequest, "Invalid request body", nil)
	}
	if len(data) > maxJSONBody {
		return nil, models.ErrValidation(http.StatusRequestEntityTooLarge, "Request body too large", nil)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return nil, models.ErrValidation(http.StatusBadRequest, "Invalid JSON", nil)
	}
	return data, nil
}

// forward sends the request's JSON body to the upstream path unchanged.
// Failures are written to w; on success the caller answers. token may be empty.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, method, path, token string) (*services.UpstreamResponse, bool) {
	req := services.UpstreamRequest{Method: method, Path: path, Token: token}
	if method != http.MethodGet && method != http.MethodDelete {
		body, err := readJSONObject(r)
		if err != nil {
			h.writeAPIError(w, r, err)
			return nil, false
		}
		req.Body = bytes.NewReader(body)
		req.ContentType = "application/json"
	}

	resp, err := h.upstream.Do(r.Context(), req)
	if err != nil {
		h.writeAPIError(w, r, err)
		return nil, false
	}
	return resp, true
}

// call sends req and answers with the upstream reply on success or a
// sanitized envelope on failure.
func (h *Handler) call(w http.ResponseWriter, r *http.Request, req services.UpstreamRequest, fallback string) {
	resp, err := h.upstream.Do(r.Context(), req)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	if !resp.OK() {
		h.writeUpstreamError(w, r, resp, fallback)
		return
	}
	h.relay(w, resp)
}

// principal returns the caller resolved by RequireSession.
func principal(r *http.Request) *middleware.Principal {
	if p := middleware.PrincipalFromContext(r.Context()); p != nil {
		return p
	}
	return &middleware.Principal{}
}
