// ABOUTME: Upload file roles and the local validation rules for lesson CSVs
// ABOUTME: Shared by the BFF upload routes and the flctl pre-upload check

package models

import (
	"slices"
	"strings"
)

// MaxUploadSize is the per-file ceiling in bytes.
const MaxUploadSize int64 = 10 * 1024 * 1024

var (
	AllowedUploadMIMETypes  = []string{"text/csv", "text/plain", "application/csv"}
	AllowedUploadExtensions = []string{".csv", ".txt"}
)

// FileRole is the multipart field name carrying one kind of lesson file.
type FileRole string

const (
	FileLessons          FileRole = "lessons_file"
	FileConcepts         FileRole = "concepts_file"
	FileExamples         FileRole = "examples_file"
	FileExercises        FileRole = "exercises_file"
	FileGeneralExercises FileRole = "general_exercises_file"
	FileCheckMarkers     FileRole = "check_markers_file"
)

// AllFileRoles is the fixed field order of the all-lesson-files upload.
var AllFileRoles = []FileRole{
	FileLessons,
	FileConcepts,
	FileExamples,
	FileExercises,
	FileGeneralExercises,
	FileCheckMarkers,
}

// UploadKind maps the URL kind segment to its file role.
var UploadKind = map[string]FileRole{
	"lessons":           FileLessons,
	"concepts":          FileConcepts,
	"examples":          FileExamples,
	"exercises":         FileExercises,
	"general-exercises": FileGeneralExercises,
	"check-markers":     FileCheckMarkers,
}

// UploadKindAll is the kind segment for the combined upload.
const UploadKindAll = "all-lesson-files"

// UpstreamField returns the multipart field name the upstream expects.
// The combined upload names the check markers field in the singular.
func (f FileRole) UpstreamField(combined bool) string {
	if combined && f == FileCheckMarkers {
		return "check_marker_file"
	}
	return string(f)
}

// Label is the human label used in validation messages.
func (f FileRole) Label() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// RequiredMessage is the validation message for a missing file.
func (f FileRole) RequiredMessage() string {
	return "The " + f.Label() + " field is required."
}

// IsValidUploadFile accepts a file with an allowed extension or an allowed MIME type.
func IsValidUploadFile(name, contentType string) bool {
	lower := strings.ToLower(name)
	for _, ext := range AllowedUploadExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return slices.Contains(AllowedUploadMIMETypes, strings.TrimSpace(strings.ToLower(mediaType)))
}

// ValidateUploadFile returns the validation messages for one file, or nil.
func ValidateUploadFile(name, contentType string, size int64) []string {
	var messages []string
	if !IsValidUploadFile(name, contentType) {
		messages = append(messages, "File type must be CSV or TXT.")
	}
	if size > MaxUploadSize {
		messages = append(messages, "File size must be less than 10MB.")
	}
	return messages
}
