// ABOUTME: Test helpers for handler tests
// ABOUTME: Provides a recording fake upstream, cookie replay, and envelope decoding

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cache"
	"github.com/travis-wayne/fastlearners-frontend-sub005/config"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// upstreamCall is one request received by the fake upstream.
type upstreamCall struct {
	Method      string
	Path        string
	RawQuery    string
	Auth        string
	ContentType string
	RequestID   string
	Body        []byte
}

// fakeUpstream records every request before handing it to handler.
type fakeUpstream struct {
	*httptest.Server
	mu    sync.Mutex
	calls []upstreamCall
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, upstreamCall{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			RequestID:   r.Header.Get("X-Request-ID"),
			Body:        body,
		})
		f.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) Calls() []upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstreamCall(nil), f.calls...)
}

func (f *fakeUpstream) Last(t *testing.T) upstreamCall {
	t.Helper()
	calls := f.Calls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one upstream call, got none")
	}
	return calls[len(calls)-1]
}

// newTestHandler builds a handler against upstreamURL with rate limiting off.
func newTestHandler(t *testing.T, upstreamURL string) *Handler {
	t.Helper()
	cfg := &config.Config{
		Port:             "8080",
		Env:              "development",
		UpstreamURL:      upstreamURL,
		UpstreamTimeout:  5,
		RateLimitAuth:    10,
		RateLimitUpload:  10,
		RateLimitDefault: 300,
		SubjectCacheTTL:  300,
	}
	c := cache.New(5 * time.Minute)
	t.Cleanup(c.Close)
	return NewHandler(cfg, c)
}

// writeUpstream answers like the FastLearners API.
func writeUpstream(w http.ResponseWriter, status int, success bool, message string, content any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"content": content,
		"code":    status,
	})
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

// sessionCookies mints the session cookie family with h's codec.
func sessionCookies(h *Handler, token string, user *models.User) []*http.Cookie {
	rec := httptest.NewRecorder()
	h.codec.SetSession(rec, token, user)
	return liveCookies(rec)
}

func regCookies(h *Handler, token string) []*http.Cookie {
	rec := httptest.NewRecorder()
	h.codec.SetRegToken(rec, token)
	return liveCookies(rec)
}

// liveCookies returns the cookies rec set, skipping deletions.
func liveCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

func withCookies(req *http.Request, cookies ...[]*http.Cookie) *http.Request {
	for _, set := range cookies {
		for _, ck := range set {
			req.AddCookie(ck)
		}
	}
	return req
}

// responseCookie returns the cookie named name set on rec, or nil.
func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func jsonBody(v any) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

var (
	studentUser    = &models.User{ID: 7, Name: "Ada", Email: "ada@example.com", Role: models.Roles{models.RoleStudent}}
	superadminUser = &models.User{ID: 1, Name: "Root", Email: "root@example.com", Role: models.Roles{models.RoleSuperadmin}}
	teacherUser    = &models.User{ID: 3, Name: "Tess", Email: "tess@example.com", Role: models.Roles{models.RoleTeacher}}
)
