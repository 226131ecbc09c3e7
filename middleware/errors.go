// ABOUTME: JSON error response helper for middleware
// ABOUTME: Ensures middleware error responses use the same envelope as handlers

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// writeJSONError writes a failure envelope with the given status code.
func writeJSONError(w http.ResponseWriter, r *http.Request, message string, code int) {
	writeEnvelope(w, code, models.Envelope{
		Success:   false,
		Message:   message,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeEnvelope(w http.ResponseWriter, code int, env models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(env)
}
