// ABOUTME: Subject selection routes backed by the cached subject-status service
// ABOUTME: Updates are form-encoded upstream and invalidate the caller's cache entry

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

type updateSubjectsRequest struct {
	Subjects []int64 `json:"subjects"`
}

// Subjects returns the caller's subject status, shared across concurrent callers.
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
	resp, err := h.subjects.Status(r.Context(), principal(r).Token)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	if !resp.OK() {
		h.writeUpstreamError(w, r, resp, "Failed to fetch subjects")
		return
	}
	h.relay(w, resp)
}

func (h *Handler) UpdateSelectiveSubjects(w http.ResponseWriter, r *http.Request) {
	var req updateSubjectsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		h.writeError(w, r, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Subjects) == 0 {
		h.writeAPIError(w, r, models.ErrValidation(http.StatusBadRequest, "Subjects are required", map[string][]string{
			"subjects": {"The subjects field is required."},
		}))
		return
	}

	resp, err := h.subjects.UpdateSelective(r.Context(), principal(r).Token, req.Subjects)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	if !resp.OK() {
		h.writeUpstreamError(w, r, resp, "Failed to update subjects")
		return
	}
	h.relay(w, resp)
}
