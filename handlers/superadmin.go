// ABOUTME: Superadmin lesson management routes
// ABOUTME: Validates lesson filters and ids locally before relaying upstream

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// lessonFilterFields are required by the lesson list, in message order.
var lessonFilterFields = []string{"class", "subject", "term", "week"}

// ListLessons relays a filtered lesson query.
func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	var filter map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&filter); err != nil {
		h.writeError(w, r, "Invalid JSON", http.StatusBadRequest)
		return
	}

	fields := map[string][]string{}
	query := make(map[string]any, len(lessonFilterFields))
	for _, name := range lessonFilterFields {
		v, ok := filter[name]
		if !ok || v == nil || v == "" {
			fields[name] = []string{fmt.Sprintf("The %s field is required.", name)}
			continue
		}
		query[name] = v
	}
	if len(fields) > 0 {
		h.writeAPIError(w, r, models.ErrValidation(http.StatusUnprocessableEntity, "Validation failed.", fields))
		return
	}

	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodPost,
		Path:   "superadmin/lessons/lessons",
		Token:  principal(r).Token,
		JSON:   query,
	}, "Failed to fetch lessons")
}

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "superadmin/lessons/lesson/" + id,
		Token:  principal(r).Token,
	}, "Failed to fetch lesson")
}

func (h *Handler) GetLessonContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "superadmin/lessons/lesson/" + id + "/content",
		Token:  principal(r).Token,
	}, "Failed to fetch lesson content")
}

// DeleteLesson moves a lesson to the trash.
func (h *Handler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodDelete,
		Path:   "superadmin/lessons/lessons/" + id,
		Token:  principal(r).Token,
	}, "Failed to delete lesson")
}

func (h *Handler) RestoreLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.lessonID(w, r)
	if !ok {
		return
	}
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodPost,
		Path:   "superadmin/lessons/lessons/" + id + "/restore",
		Token:  principal(r).Token,
	}, "Failed to restore lesson")
}

func (h *Handler) TrashedLessons(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "superadmin/lessons/lessons/view-trashed",
		Token:  principal(r).Token,
	}, "Failed to fetch trashed lessons")
}

// LessonMetadata returns the classes, subjects, terms and weeks lessons are filed under.
func (h *Handler) LessonMetadata(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, services.UpstreamRequest{
		Method: http.MethodGet,
		Path:   "superadmin/lessons/get-classes-subjects-terms-weeks",
		Token:  principal(r).Token,
	}, "Failed to fetch lesson metadata")
}

func (h *Handler) lessonID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, r, "Invalid lesson ID", http.StatusBadRequest)
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}
