// ABOUTME: Test helpers for e2e tests
// ABOUTME: Runs the BFF router against a stateful fake upstream and drives it with a cookie-jar client

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cache"
	"github.com/travis-wayne/fastlearners-frontend-sub005/config"
	"github.com/travis-wayne/fastlearners-frontend-sub005/handlers"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

const verificationCode = "123456"

// account is one user known to the fake upstream.
type account struct {
	user     models.User
	password string
	token    string // registration token, later the session token
}

// fakeAPI is a small stateful stand-in for the FastLearners API.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	tokens   map[string]*account
	expired  map[string]bool
	nextID   int64
	proxied  []*http.Request // requests under /catalog/
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		accounts: map[string]*account{},
		tokens:   map[string]*account{},
		expired:  map[string]bool{},
		nextID:   100,
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

// addUser seeds an account that can log in directly.
func (api *fakeAPI) addUser(email, password string, role models.Role) *account {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.nextID++
	acc := &account{
		user:     models.User{ID: api.nextID, Name: email, Email: email, Role: models.Roles{role}},
		password: password,
	}
	api.accounts[email] = acc
	return acc
}

func (api *fakeAPI) expire(token string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.expired[token] = true
}

func (api *fakeAPI) proxiedRequests() []*http.Request {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]*http.Request(nil), api.proxied...)
}

func (api *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	raw, _ := io.ReadAll(r.Body)
	var body map[string]string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		json.Unmarshal(raw, &body)
	}
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	caller := api.tokens[bearer]
	if api.expired[bearer] {
		reply(w, http.StatusUnauthorized, false, "Unauthenticated.", nil)
		return
	}

	switch r.URL.Path {
	case "/register":
		if _, exists := api.accounts[body["email"]]; exists {
			reply(w, http.StatusUnprocessableEntity, false, "The email has already been taken.", nil)
			return
		}
		api.nextID++
		api.accounts[body["email"]] = &account{
			user: models.User{ID: api.nextID, Email: body["email"], Role: models.Roles{models.RoleGuest}},
		}
		reply(w, http.StatusOK, true, "Verification code sent", nil)

	case "/verify-email":
		acc := api.accounts[body["email"]]
		if acc == nil || body["code"] != verificationCode {
			reply(w, http.StatusBadRequest, false, "Invalid verification code", nil)
			return
		}
		acc.token = "reg-" + acc.user.Email
		api.tokens[acc.token] = acc
		reply(w, http.StatusOK, true, "Email verified", map[string]any{"access_token": acc.token})

	case "/create-password":
		if caller == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthenticated.", nil)
			return
		}
		caller.password = body["password"]
		reply(w, http.StatusOK, true, "Password created", nil)

	case "/set-role":
		if caller == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthenticated.", nil)
			return
		}
		caller.user.Role = models.Roles{models.Role(body["role"])}
		reply(w, http.StatusOK, true, "Role set", nil)

	case "/login":
		acc := api.accounts[body["email_phone"]]
		if acc == nil || acc.password != body["password"] {
			reply(w, http.StatusUnauthorized, false, "Invalid credentials", nil)
			return
		}
		acc.token = "sess-" + acc.user.Email
		api.tokens[acc.token] = acc
		reply(w, http.StatusOK, true, "Login successful", map[string]any{"access_token": acc.token, "user": acc.user})

	case "/auth/google/callback":
		if r.URL.Query().Get("code") == "" {
			reply(w, http.StatusBadRequest, false, "Missing authorization code", nil)
			return
		}
		reply(w, http.StatusUnauthorized, false, "Invalid authorization code", nil)

	case "/logout":
		reply(w, http.StatusOK, true, "Logged out", nil)

	case "/profile":
		if caller == nil {
			reply(w, http.StatusUnauthorized, false, "Unauthenticated.", nil)
			return
		}
		reply(w, http.StatusOK, true, "Profile", map[string]any{"user": caller.user})

	default:
		if strings.HasPrefix(r.URL.Path, "/catalog/") {
			api.proxied = append(api.proxied, r.Clone(r.Context()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"query":  r.URL.RawQuery,
				"body":   string(raw),
				"authed": caller != nil,
			})
			return
		}
		reply(w, http.StatusNotFound, false, "Not found", nil)
	}
}

func reply(w http.ResponseWriter, status int, success bool, message string, content any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"content": content,
		"code":    status,
	})
}

// testConfig returns a development config pointed at upstreamURL.
func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "development",
		UpstreamURL:      upstreamURL,
		UpstreamTimeout:  5,
		RateLimitAuth:    10,
		RateLimitUpload:  10,
		RateLimitDefault: 300,
		SubjectCacheTTL:  300,
	}
}

// startBFF serves the full router for cfg and returns its URL.
func startBFF(t *testing.T, cfg *config.Config) string {
	t.Helper()
	c := cache.New(5 * time.Minute)
	t.Cleanup(c.Close)
	srv := httptest.NewServer(handlers.NewRouter(handlers.NewHandler(cfg, c)))
	t.Cleanup(srv.Close)
	return srv.URL
}

// browser is an HTTP client with a cookie jar, standing in for the frontend.
type browser struct {
	t    *testing.T
	base string
	http *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, base: base, http: &http.Client{Jar: jar}}
}

// do sends a request and decodes the reply as an envelope.
func (b *browser) do(method, path string, body any) (*http.Response, models.Envelope) {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	if err != nil {
		b.t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.http.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env models.Envelope
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &env)
	return resp, env
}

// cookie returns the jar's value for name, or "".
func (b *browser) cookie(name string) string {
	req, _ := http.NewRequest(http.MethodGet, b.base, nil)
	for _, ck := range b.http.Jar.Cookies(req.URL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}
