// ABOUTME: HTTP handler for the health endpoint
// ABOUTME: Reports service status without calling the upstream API

package handlers

import (
	"net/http"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// Health returns API health status including upstream target and cache status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"environment":    h.cfg.Env,
		"upstream_api":   h.upstream.BaseURL(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"rate_limiting":  h.cfg.RateLimitEnabled,
		"tunnel":         "not_configured",
		"cache_status": map[string]any{
			"entries":     h.cache.Len(),
			"ttl_seconds": int64(h.cache.TTL().Seconds()),
		},
	}

	if h.cfg.UpstreamAllProxy != "" {
		resp["tunnel"] = "configured"
	}

	h.writeJSON(w, http.StatusOK, models.OK("Service healthy", resp))
}
