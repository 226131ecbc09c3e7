// ABOUTME: Profile relay routes and the cached user snapshot endpoint
// ABOUTME: Profile reads retry once on timeout or network failure

package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/travis-wayne/fastlearners-frontend-sub005/middleware"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// Profile loads the caller's profile, retrying once on timeout or network error.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	resp, err := h.upstream.DoWithRetry(r.Context(), services.UpstreamRequest{
		Method:  http.MethodGet,
		Path:    "profile",
		Token:   p.Token,
		Timeout: h.profileTimeout,
	}, 1)
	if err != nil {
		if models.IsKind(err, models.KindTimeout) || models.IsKind(err, models.KindNetwork) {
			err = models.ErrNetwork("Network error: failed to fetch profile after retry", err)
		}
		h.writeAPIError(w, r, err)
		return
	}
	if !resp.OK() {
		h.writeUpstreamError(w, r, resp, "Failed to fetch profile")
		return
	}

	h.refreshSnapshot(w, p, resp)
	h.relay(w, resp)
}

// EditProfile relays profile changes and refreshes the user snapshot.
func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	resp, ok := h.forward(w, r, http.MethodPost, "profile/edit", p.Token)
	if !ok {
		return
	}
	if resp.OK() {
		h.refreshSnapshot(w, p, resp)
	}
	h.relay(w, resp)
}

func (h *Handler) EditPassword(w http.ResponseWriter, r *http.Request) {
	if resp, ok := h.forward(w, r, http.MethodPost, "profile/edit/password", principal(r).Token); ok {
		h.relay(w, resp)
	}
}

func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.writeError(w, r, "Username is required", http.StatusBadRequest)
		return
	}
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "profile/check-username/" + url.PathEscape(username),
		Token:  principal(r).Token,
	}, "Failed to check username")
}

// DeleteProfile schedules account deletion. Single attempt.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	h.deleteAccount(w, r, "profile/delete", false)
}

// DeleteProfileNow deletes the account immediately and ends the session.
func (h *Handler) DeleteProfileNow(w http.ResponseWriter, r *http.Request) {
	h.deleteAccount(w, r, "profile/delete-now", true)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request, path string, endSession bool) {
	resp, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method:  http.MethodDelete,
		Path:    path,
		Token:   principal(r).Token,
		Timeout: h.profileTimeout,
	})
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	if !resp.OK() {
		h.writeUpstreamError(w, r, resp, "Failed to delete account")
		return
	}
	if endSession {
		h.codec.ClearSession(w)
		h.codec.ClearRegToken(w)
	}
	h.relay(w, resp)
}

// CurrentUser returns the user snapshot cached in the session cookies.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p.User == nil {
		h.writeError(w, r, "User not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, models.OK("User retrieved", models.ProfileContent{User: p.User}))
}

// refreshSnapshot rewrites the auth_user cookie when a session caller's reply carries a user.
// Must run before the reply is written.
func (h *Handler) refreshSnapshot(w http.ResponseWriter, p *middleware.Principal, resp *services.UpstreamResponse) {
	if p.Source != services.TokenSourceSession || resp.Envelope == nil {
		return
	}
	if user := resp.Envelope.DecodeProfileUser(); user != nil {
		h.codec.RefreshUser(w, p.Session, user)
	}
}
