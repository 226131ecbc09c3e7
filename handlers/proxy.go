// ABOUTME: Generic catch-all proxy from /api/proxy/* to the upstream API
// ABOUTME: Forwards method, path, query and body unchanged with the session bearer token

package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/middleware"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// maxProxyBody caps request bodies relayed by the proxy. Bodies are read in
// full before forwarding so an oversized one is rejected with 413.
const maxProxyBody = 32 << 20

// ProxyMethods are the methods the catch-all proxy accepts.
var ProxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Proxy relays any request under /api/proxy/ verbatim. The target path is not
// validated. Only the session token is attached; registration tokens are not.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	token, _ := h.codec.ResolveToken(r, false)

	req := services.UpstreamRequest{
		Method:   r.Method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Token:    token,
		Header:   http.Header{},
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeAPIError(w, r, models.ErrValidation(http.StatusRequestEntityTooLarge, "Request body too large", nil))
				return
			}
			h.writeError(w, r, "Invalid request body", http.StatusBadRequest)
			return
		}
		req.Body = bytes.NewReader(body)
		req.ContentType = r.Header.Get("Content-Type")
	}

	resp, err := h.upstream.Do(r.Context(), req)
	if err != nil {
		apiErr := models.AsAPIError(err)
		logger.FromContext(r.Context()).Warn("Proxy request failed",
			"method", r.Method,
			"path", path,
			"kind", apiErr.Kind,
			"error", err,
		)
		if apiErr.Kind == models.KindNetwork {
			apiErr = models.ErrNetwork("Proxy request failed", err)
		}
		h.writeAPIError(w, r, apiErr)
		return
	}

	h.relay(w, resp)
}
