// ABOUTME: HTTP client for the FastLearners upstream REST API
// ABOUTME: Attaches bearer tokens, throttles outbound calls, and classifies transport failures

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// maxUpstreamBody caps how much of an upstream response is buffered.
const maxUpstreamBody = 32 << 20

// UpstreamClient calls the upstream API.
type UpstreamClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	debug   bool
}

type UpstreamOption func(*UpstreamClient)

// WithRateLimit throttles outbound calls with a token bucket. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) UpstreamOption {
	return func(c *UpstreamClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDialer routes connections through dial, e.g. the SSH tunnel.
func WithDialer(dial DialContextFunc) UpstreamOption {
	return func(c *UpstreamClient) {
		if dial == nil {
			return
		}
		if t, ok := c.client.Transport.(*http.Transport); ok {
			t.DialContext = dial
		}
	}
}

// WithDebug logs upstream error bodies at debug level.
func WithDebug(debug bool) UpstreamOption {
	return func(c *UpstreamClient) {
		c.debug = debug
	}
}

// NewUpstreamClient creates a client rooted at baseURL.
func NewUpstreamClient(baseURL string, timeout time.Duration, opts ...UpstreamOption) *UpstreamClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second

	c := &UpstreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (c *UpstreamClient) SetHTTPClient(client *http.Client) {
	c.client = client
}

// BaseURL returns the upstream root without a trailing slash.
func (c *UpstreamClient) BaseURL() string {
	return c.baseURL
}

// UpstreamRequest describes one relayed call.
type UpstreamRequest struct {
	Method   string
	Path     string // relative to the base URL, with or without a leading slash
	RawQuery string
	Token    string

	// JSON is marshalled as the body when set; otherwise Body is sent as is.
	JSON        any
	Body        io.Reader
	ContentType string
	Header      http.Header

	// Timeout bounds this call on top of the client timeout. Zero means none.
	Timeout time.Duration
}

// UpstreamResponse is a buffered upstream reply.
type UpstreamResponse struct {
	Status   int
	Header   http.Header
	Body     []byte
	Envelope *models.UpstreamEnvelope // nil when the body is not a JSON object
}

// OK reports a 2xx status.
func (r *UpstreamResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Message returns the envelope message, or fallback.
func (r *UpstreamResponse) Message(fallback string) string {
	if r.Envelope != nil && r.Envelope.Message != "" {
		return r.Envelope.Message
	}
	return fallback
}

// Err converts a non-2xx reply into an upstream error carrying the raw body.
func (r *UpstreamResponse) Err(fallback string) *models.APIError {
	if r.OK() {
		return nil
	}
	return models.ErrUpstream(r.Status, r.Message(fallback), r.Body)
}

// Do sends the request and buffers the reply. A non-2xx status is not an error;
// only transport failures are, as *models.APIError of kind timeout or network.
func (c *UpstreamClient) Do(ctx context.Context, req UpstreamRequest) (*UpstreamResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(ctx, err)
		}
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, models.ErrValidation(http.StatusBadRequest, "Invalid request body", nil)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, models.ErrNetwork("Invalid upstream request", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		log.Warn("Upstream request failed", "method", req.Method, "path", req.Path, "error", err)
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		log.Warn("Upstream response read failed", "method", req.Method, "path", req.Path, "error", err)
		return nil, classifyTransportError(ctx, err)
	}

	out := &UpstreamResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}
	var env models.UpstreamEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		out.Envelope = &env
	}

	log.Debug("Upstream request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if c.debug && !out.OK() {
		log.Debug("Upstream error body", "path", req.Path, "status", resp.StatusCode, "body", string(data))
	}

	return out, nil
}

// DoWithRetry retries once more per extra attempt when the failure is a timeout or network error.
// The request body must be replayable, so only bodiless or JSON requests qualify.
func (c *UpstreamClient) DoWithRetry(ctx context.Context, req UpstreamRequest, retries int) (*UpstreamResponse, error) {
	if req.Body != nil {
		return nil, errors.New("DoWithRetry requires a replayable request")
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := c.Do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !models.IsKind(err, models.KindTimeout) && !models.IsKind(err, models.KindNetwork) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		logger.FromContext(ctx).Info("Retrying upstream request", "path", req.Path, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.ErrTimeout("Upstream request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrTimeout("Upstream request timed out", err)
	}
	return models.ErrNetwork("Upstream unreachable", err)
}
