// ABOUTME: Lesson file upload routes for superadmins and teachers
// ABOUTME: Validates each file locally, then streams a fresh multipart body upstream

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/middleware"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

const (
	// maxUploadOverhead is per-file slack so a slightly oversized file still
	// parses and gets a field-level size message.
	maxUploadOverhead = 1 << 20
	maxUploadMemory   = 32 << 20
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// uploadResult is the part of an upstream upload reply worth logging.
type uploadResult struct {
	Errors    json.RawMessage   `json:"errors"`
	Conflicts []json.RawMessage `json:"conflicts"`
}

// Upload returns the handler for one upload kind: a single file role, or
// all six for the combined lesson upload. Panics on an unknown kind.
func (h *Handler) Upload(kind string) http.HandlerFunc {
	combined := kind == models.UploadKindAll
	var roles []models.FileRole
	if combined {
		roles = models.AllFileRoles
	} else {
		role, ok := models.UploadKind[kind]
		if !ok {
			panic(fmt.Sprintf("Upload: unknown upload kind %q", kind))
		}
		roles = []models.FileRole{role}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		h.upload(w, r, kind, roles, combined)
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, kind string, roles []models.FileRole, combined bool) {
	log := logger.FromContext(r.Context())
	requestID := middleware.RequestIDFromContext(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	limit := int64(len(roles)) * (models.MaxUploadSize + maxUploadOverhead)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeAPIError(w, r, models.ErrValidation(http.StatusRequestEntityTooLarge, "Upload too large", nil))
			return
		}
		h.writeError(w, r, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields := map[string][]string{}
	files := make(map[models.FileRole]*multipart.FileHeader, len(roles))
	var totalSize int64
	for _, role := range roles {
		headers := r.MultipartForm.File[string(role)]
		if len(headers) == 0 {
			fields[string(role)] = []string{role.RequiredMessage()}
			continue
		}
		fh := headers[0]
		if msgs := models.ValidateUploadFile(fh.Filename, fh.Header.Get("Content-Type"), fh.Size); len(msgs) > 0 {
			fields[string(role)] = msgs
			continue
		}
		files[role] = fh
		totalSize += fh.Size
	}
	if len(fields) > 0 {
		log.Info("upload_rejected", "uploadType", kind, "fields", len(fields))
		h.writeAPIError(w, r, models.ErrValidation(http.StatusUnprocessableEntity, "Validation failed.", fields))
		return
	}

	attempt := []any{"uploadType", kind, "totalSize", totalSize}
	for _, role := range roles {
		attempt = append(attempt, string(role), files[role].Size)
	}
	log.Info("upload_attempt", attempt...)

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadParts(mw, roles, files, combined))
	}()

	resp, err := h.upstream.Do(r.Context(), services.UpstreamRequest{
		Method:      http.MethodPost,
		Path:        "superadmin/lessons/uploads/" + kind,
		Token:       principal(r).Token,
		Body:        pr,
		ContentType: mw.FormDataContentType(),
		Header:      http.Header{"X-Request-Id": {requestID}},
	})
	if err != nil {
		log.Error("upload_failed", "uploadType", kind, "error", err)
		h.writeAPIError(w, r, err)
		return
	}

	var result uploadResult
	_ = json.Unmarshal(resp.Body, &result)
	log.Info("upload_complete",
		"uploadType", kind,
		"statusCode", resp.Status,
		"success", resp.OK(),
		"hasErrors", len(result.Errors) > 0 && string(result.Errors) != "null",
		"hasConflicts", len(result.Conflicts) > 0,
		"conflictCount", len(result.Conflicts),
	)

	h.relay(w, resp)
}

// writeUploadParts copies each validated file into mw in role order and closes it.
func writeUploadParts(mw *multipart.Writer, roles []models.FileRole, files map[models.FileRole]*multipart.FileHeader, combined bool) error {
	for _, role := range roles {
		fh := files[role]
		if err := copyUploadPart(mw, role.UpstreamField(combined), fh); err != nil {
			return fmt.Errorf("copying %s: %w", role, err)
		}
	}
	return mw.Close()
}

func copyUploadPart(mw *multipart.Writer, field string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(fh.Filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}
