// ABOUTME: Session check route that validates the cookie session against upstream
// ABOUTME: Classifies failures into stable error codes for the client auth store

package handlers

import (
	"net/http"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// Session verifies the session token by loading /profile within a single
// fixed deadline and refreshes the cached user snapshot on success.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	s, ok := h.codec.ParseSession(r)
	if !ok {
		h.writeSessionError(w, r, http.StatusUnauthorized, "No authentication cookies", models.ErrCodeNoAuthCookies)
		return
	}

	resp, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method:  http.MethodGet,
		Path:    "profile",
		Token:   s.Token,
		Timeout: h.sessionCheckTimeout,
	})
	if err != nil {
		if models.IsKind(err, models.KindTimeout) {
			log.Warn("Session check timed out", "timeout", h.sessionCheckTimeout)
			h.writeSessionError(w, r, http.StatusGatewayTimeout, "Session check timed out", models.ErrCodeUpstreamTimeout)
			return
		}
		h.writeAPIError(w, r, err)
		return
	}

	switch {
	case resp.Status == http.StatusUnauthorized:
		h.writeSessionError(w, r, resp.Status, resp.Message("Session expired"), models.ErrCodeTokenExpired)
		return
	case resp.Status == http.StatusForbidden:
		h.writeSessionError(w, r, resp.Status, resp.Message("Forbidden"), models.ErrCodeForbidden)
		return
	case !resp.OK():
		h.writeSessionError(w, r, resp.Status, resp.Message("Unauthorized"), models.ErrCodeUnauthorized)
		return
	}

	var user *models.User
	if resp.Envelope != nil {
		user = resp.Envelope.DecodeProfileUser()
	}
	if user == nil {
		h.writeSessionError(w, r, http.StatusUnauthorized, "Unauthorized", models.ErrCodeUnauthorized)
		return
	}

	h.codec.RefreshUser(w, s, user)
	h.writeJSON(w, http.StatusOK, models.Envelope{
		Success: true,
		Message: "Session active",
		Code:    http.StatusOK,
		User:    user,
	})
}

func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	apiErr := &models.APIError{Kind: models.KindUnauthorized, Status: status, Message: message, ErrorCode: code}
	if code == models.ErrCodeUpstreamTimeout {
		apiErr.Kind = models.KindTimeout
	}
	h.writeAPIError(w, r, apiErr)
}
