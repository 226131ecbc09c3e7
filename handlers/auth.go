// ABOUTME: Auth relay routes for registration, onboarding, login and logout
// ABOUTME: Translates upstream access tokens into local session and registration cookies

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/rbac"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// Register relays a sign-up request to the upstream API.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if resp, ok := h.forward(w, r, http.MethodPost, "register", ""); ok {
		h.relay(w, resp)
	}
}

// VerifyEmail relays the verification code. An access token in the reply
// starts the onboarding funnel with a 15-minute registration cookie.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.forward(w, r, http.MethodPost, "verify-email", "")
	if !ok {
		return
	}

	if resp.OK() && resp.Envelope != nil {
		if content := resp.Envelope.DecodeAuthContent(); content.AccessToken != "" {
			h.codec.SetRegToken(w, content.AccessToken)
			logger.FromContext(r.Context()).Info("Registration token issued")
		}
	}
	h.relay(w, resp)
}

func (h *Handler) ResendVerificationCode(w http.ResponseWriter, r *http.Request) {
	if resp, ok := h.forward(w, r, http.MethodPost, "resend-verification-code", ""); ok {
		h.relay(w, resp)
	}
}

// CreatePassword relays with the session or registration token.
// The registration cookie stays in place for the set-role step.
func (h *Handler) CreatePassword(w http.ResponseWriter, r *http.Request) {
	if resp, ok := h.forward(w, r, http.MethodPost, "create-password", principal(r).Token); ok {
		h.relay(w, resp)
	}
}

// SetRole relays the chosen role, then loads the profile with the same token.
// When the profile yields a user the token is promoted to a 7-day session
// and the registration cookie is cleared.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	resp, ok := h.forward(w, r, http.MethodPost, "set-role", p.Token)
	if !ok {
		return
	}
	if !resp.OK() {
		h.relay(w, resp)
		return
	}

	prof, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "profile",
		Token:  p.Token,
	})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}

	var user *models.User
	if prof.OK() && prof.Envelope != nil {
		user = prof.Envelope.DecodeProfileUser()
	}

	body := map[string]json.RawMessage{}
	_ = json.Unmarshal(resp.Body, &body)
	userJSON, _ := json.Marshal(user)
	body["user"] = userJSON

	if user != nil {
		h.codec.SetSession(w, p.Token, user)
		h.codec.ClearRegToken(w)
		logger.FromContext(r.Context()).Info("Session established after role selection",
			"user_id", user.ID,
			"role", user.PrimaryRole(),
		)
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if resp, ok := h.forward(w, r, http.MethodPost, "reset-password", ""); ok {
		h.relay(w, resp)
	}
}

// Login exchanges credentials for a session. Any upstream refusal is a 401.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&creds); err != nil {
		h.writeError(w, r, "Missing credentials", http.StatusBadRequest)
		return
	}
	creds.EmailPhone = strings.TrimSpace(creds.EmailPhone)
	if creds.EmailPhone == "" || creds.Password == "" {
		h.writeError(w, r, "Missing credentials", http.StatusBadRequest)
		return
	}

	resp, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method: http.MethodPost,
		Path:   "login",
		JSON:   creds,
	})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}

	var content models.AuthContent
	if resp.Envelope != nil {
		content = resp.Envelope.DecodeAuthContent()
	}
	if !resp.OK() || resp.Envelope == nil || !resp.Envelope.Success || content.AccessToken == "" {
		logger.FromContext(r.Context()).Info("Login rejected", "status", resp.Status)
		h.writeAPIError(w, r, models.ErrUnauthorized(resp.Message("Login failed")))
		return
	}

	h.codec.SetSession(w, content.AccessToken, content.User)
	if content.User != nil {
		logger.FromContext(r.Context()).Info("Login succeeded", "user_id", content.User.ID)
	}
	h.writeJSON(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: resp.Message("Login successful"),
		Code:    http.StatusOK,
		User:    content.User,
	})
}

// Logout clears both cookie families. It never calls upstream and is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.codec.ClearSession(w)
	h.codec.ClearRegToken(w)
	h.writeJSON(w, http.StatusOK, models.OK("Logged out successfully", nil))
}

// GoogleCallback forwards the OAuth query string upstream and mints a
// session when the reply carries both a token and a user.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	resp, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method:   http.MethodGet,
		Path:     "auth/google/callback",
		RawQuery: r.URL.RawQuery,
	})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}

	if resp.OK() && resp.Envelope != nil {
		content := resp.Envelope.DecodeAuthContent()
		if content.AccessToken != "" && content.User != nil {
			h.codec.SetSession(w, content.AccessToken, content.User)
			h.writeJSON(w, http.StatusOK, models.Envelope{
				Success: true,
				Message: resp.Message("Login successful"),
				Code:    http.StatusOK,
				User:    content.User,
			})
			return
		}
	}
	h.relay(w, resp)
}

// Guard reports the page-guard decision for ?path= and the caller's cookies.
func (h *Handler) Guard(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" || !strings.HasPrefix(path, "/") {
		h.writeError(w, r, "path must be an absolute page path", http.StatusBadRequest)
		return
	}

	var user *models.User
	if s, ok := h.codec.ParseSession(r); ok {
		user = s.User
		if user == nil {
			// Session without a snapshot: authenticated, role unknown.
			user = &models.User{}
		}
	}

	h.writeJSON(w, http.StatusOK, models.OK("Route decision", rbac.Decide(path, user)))
}
