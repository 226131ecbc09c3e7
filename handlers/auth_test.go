// ABOUTME: Tests for auth relay routes
// ABOUTME: Verifies cookie minting, verbatim failure relays, and the onboarding funnel

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/rbac"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

func TestRegister_RelaysUpstreamVerbatim(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"message":"The email has already been taken.","content":null,"code":422}`))
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"ada@example.com"}`))
	rec := serve(h, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected upstream status 422, got %d", rec.Code)
	}
	want := `{"success":false,"message":"The email has already been taken.","content":null,"code":422}`
	if rec.Body.String() != want {
		t.Errorf("Expected verbatim body, got %s", rec.Body.String())
	}

	call := upstream.Last(t)
	if call.Path != "/register" || call.Method != http.MethodPost {
		t.Errorf("Expected POST /register, got %s %s", call.Method, call.Path)
	}
	if string(call.Body) != `{"email":"ada@example.com"}` {
		t.Errorf("Expected body forwarded unchanged, got %s", call.Body)
	}
	if call.ContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", call.ContentType)
	}
	if call.Auth != "" {
		t.Errorf("Expected no Authorization header, got %q", call.Auth)
	}
}

func TestRegister_RejectsNonObjectBody(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Upstream should not be called")
	})
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestVerifyEmail_SetsRegistrationCookie(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeUpstream(w, http.StatusOK, true, "Email verified", map[string]any{"access_token": "reg-abc"})
	})
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/verify-email", strings.NewReader(`{"email":"a@b.c","code":"123456"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	ck := responseCookie(rec, services.RegTokenCookie)
	if ck == nil || ck.Value != "reg-abc" {
		t.Fatalf("Expected reg_token cookie with upstream token, got %+v", ck)
	}
	if !ck.HttpOnly {
		t.Error("Expected HttpOnly registration cookie")
	}
	if ck.MaxAge != int(services.RegTokenTTL.Seconds()) {
		t.Errorf("Expected MaxAge %d, got %d", int(services.RegTokenTTL.Seconds()), ck.MaxAge)
	}
	if responseCookie(rec, services.AuthTokenCookie) != nil {
		t.Error("Verify-email must not mint a session cookie")
	}
}

func TestVerifyEmail_FailureSetsNoCookie(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeUpstream(w, http.StatusBadRequest, false, "Invalid code", nil)
	})
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/verify-email", strings.NewReader(`{"code":"0"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if responseCookie(rec, services.RegTokenCookie) != nil {
		t.Error("Expected no registration cookie on failure")
	}
}

func TestCreatePassword_UsesRegistrationTokenAndKeepsIt(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeUpstream(w, http.StatusOK, true, "Password created", nil)
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/create-password", strings.NewReader(`{"password":"s3cret!","password_confirmation":"s3cret!"}`))
	rec := serve(h, withCookies(req, regCookies(h, "reg-abc")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := upstream.Last(t).Auth; got != "Bearer reg-abc" {
		t.Errorf("Expected registration bearer token, got %q", got)
	}
	if ck := responseCookie(rec, services.RegTokenCookie); ck != nil {
		t.Errorf("Expected registration cookie untouched, got %+v", ck)
	}
}

func TestCreatePassword_SessionTokenWins(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeUpstream(w, http.StatusOK, true, "ok", nil)
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/create-password", strings.NewReader(`{}`))
	serve(h, withCookies(req, regCookies(h, "reg-abc"), sessionCookies(h, "sess-xyz", studentUser)))

	if got := upstream.Last(t).Auth; got != "Bearer sess-xyz" {
		t.Errorf("Expected session token to win, got %q", got)
	}
}

func TestSetRole_PromotesToSession(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set-role":
			writeUpstream(w, http.StatusOK, true, "Role set", nil)
		case "/profile":
			writeUpstream(w, http.StatusOK, true, "Profile", map[string]any{"user": studentUser})
		default:
			http.NotFound(w, r)
		}
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/set-role", strings.NewReader(`{"role":"student"}`))
	rec := serve(h, withCookies(req, regCookies(h, "reg-abc")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success || body.Message != "Role set" {
		t.Errorf("Expected upstream envelope fields kept, got %+v", body)
	}
	if body.User == nil || body.User.ID != studentUser.ID {
		t.Errorf("Expected profile user merged in, got %+v", body.User)
	}

	if ck := responseCookie(rec, services.AuthTokenCookie); ck == nil || ck.Value != "reg-abc" {
		t.Errorf("Expected session cookie carrying the same token, got %+v", ck)
	}
	if ck := responseCookie(rec, services.RegTokenCookie); ck == nil || ck.MaxAge >= 0 {
		t.Errorf("Expected registration cookie cleared, got %+v", ck)
	}

	calls := upstream.Calls()
	if len(calls) != 2 || calls[1].Auth != "Bearer reg-abc" {
		t.Errorf("Expected profile fetched with the same token, got %+v", calls)
	}
}

func TestSetRole_NoProfileUserKeepsRegistration(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set-role" {
			writeUpstream(w, http.StatusOK, true, "Role set", nil)
			return
		}
		writeUpstream(w, http.StatusInternalServerError, false, "profile down", nil)
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/set-role", strings.NewReader(`{"role":"student"}`))
	rec := serve(h, withCookies(req, regCookies(h, "reg-abc")))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if responseCookie(rec, services.AuthTokenCookie) != nil {
		t.Error("Expected no session cookie without a profile user")
	}
	if responseCookie(rec, services.RegTokenCookie) != nil {
		t.Error("Expected registration cookie left alone")
	}
}

func TestSetRole_UpstreamFailureRelayed(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeUpstream(w, http.StatusForbidden, false, "Role not allowed", nil)
	})
	h := newTestHandler(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/set-role", strings.NewReader(`{"role":"superadmin"}`))
	rec := serve(h, withCookies(req, regCookies(h, "reg-abc")))

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
	if len(upstream.Calls()) != 1 {
		t.Errorf("Expected no profile fetch after failure, got %d calls", len(upstream.Calls()))
	}
}

func TestLogin(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		var creds models.LoginRequest
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "right" {
			writeUpstream(w, http.StatusUnprocessableEntity, false, "Invalid credentials", nil)
			return
		}
		writeUpstream(w, http.StatusOK, true, "Login successful", map[string]any{
			"access_token": "sess-123",
			"user":         studentUser,
		})
	})
	h := newTestHandler(t, upstream.URL)

	t.Run("missing credentials", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email_phone":"ada@example.com"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Message != "Missing credentials" {
			t.Errorf("Expected 'Missing credentials', got %q", env.Message)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(models.LoginRequest{EmailPhone: "ada@example.com", Password: "wrong"})))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Message != "Invalid credentials" {
			t.Errorf("Expected upstream message, got %q", env.Message)
		}
		if responseCookie(rec, services.AuthTokenCookie) != nil {
			t.Error("Expected no session cookie on failure")
		}
	})

	t.Run("success", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(models.LoginRequest{EmailPhone: "ada@example.com", Password: "right"})))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		if !env.Success || env.User == nil || env.User.Email != "ada@example.com" {
			t.Errorf("Expected success with user, got %+v", env)
		}
		for _, name := range []string{services.AuthTokenCookie, services.AuthUserCookie, services.AuthExpiresCookie} {
			if ck := responseCookie(rec, name); ck == nil || ck.Value == "" {
				t.Errorf("Expected %s cookie to be set", name)
			}
		}
		if ck := responseCookie(rec, services.AuthTokenCookie); ck.MaxAge != int(services.SessionTTL.Seconds()) {
			t.Errorf("Expected 7-day MaxAge, got %d", ck.MaxAge)
		}
	})
}

func TestLogout_ClearsCookiesIdempotently(t *testing.T) {
	h := NewHandler(nil, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		if i == 0 {
			withCookies(req, sessionCookies(h, "sess", studentUser), regCookies(h, "reg"))
		}
		rec := serve(h, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Logout %d: expected 200, got %d", i, rec.Code)
		}
		for _, name := range []string{services.AuthTokenCookie, services.AuthUserCookie, services.AuthExpiresCookie, services.RegTokenCookie, services.RegExpiresCookie} {
			ck := responseCookie(rec, name)
			if ck == nil || ck.MaxAge >= 0 {
				t.Errorf("Logout %d: expected %s to be expired, got %+v", i, name, ck)
			}
		}
	}
}

func TestGoogleCallback(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "" {
			writeUpstream(w, http.StatusBadRequest, false, "Missing code", nil)
			return
		}
		writeUpstream(w, http.StatusOK, true, "Login successful", map[string]any{
			"access_token": "google-sess",
			"user":         studentUser,
		})
	})
	h := newTestHandler(t, upstream.URL)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=xyz&state=abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	call := upstream.Last(t)
	if call.Path != "/auth/google/callback" || call.RawQuery != "code=xyz&state=abc" {
		t.Errorf("Expected query forwarded to /auth/google/callback, got %s?%s", call.Path, call.RawQuery)
	}
	if ck := responseCookie(rec, services.AuthTokenCookie); ck == nil || ck.Value != "google-sess" {
		t.Errorf("Expected session cookie, got %+v", ck)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected upstream 400 relayed, got %d", rec.Code)
	}
}

func TestGuard(t *testing.T) {
	h := NewHandler(nil, nil)

	decide := func(t *testing.T, req *http.Request) rbac.Decision {
		t.Helper()
		rec := serve(h, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var body struct {
			Content rbac.Decision `json:"content"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		return body.Content
	}

	t.Run("anonymous on protected page", func(t *testing.T) {
		d := decide(t, httptest.NewRequest(http.MethodGet, "/api/auth/guard?path=/dashboard", nil))
		if d.Allowed || d.Reason != rbac.ReasonUnauth {
			t.Errorf("Expected login redirect, got %+v", d)
		}
		if !strings.HasPrefix(d.Redirect, "/auth/login?callbackUrl=") {
			t.Errorf("Expected callbackUrl redirect, got %q", d.Redirect)
		}
	})

	t.Run("student on admin page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/guard?path=/superadmin", nil)
		d := decide(t, withCookies(req, sessionCookies(h, "sess", studentUser)))
		if d.Allowed || d.Reason != rbac.ReasonDenied {
			t.Errorf("Expected RBAC denial, got %+v", d)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/auth/guard", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}
