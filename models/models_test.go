package models

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles_UnmarshalArrayOrString(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"role":["teacher","admin"]}`), &u))
	assert.Equal(t, Roles{RoleTeacher, RoleAdmin}, u.Role)
	assert.Equal(t, RoleTeacher, u.PrimaryRole())

	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"role":"student"}`), &u))
	assert.Equal(t, Roles{RoleStudent}, u.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"role":""}`), &u))
	assert.Empty(t, u.Role)
	assert.Equal(t, RoleGuest, u.PrimaryRole())
}

func TestUser_HasRole(t *testing.T) {
	u := &User{Role: Roles{RoleGuardian, RoleStudent}}
	assert.True(t, u.HasRole(RoleStudent))
	assert.False(t, u.HasRole(RoleAdmin))
	assert.True(t, u.HasAnyRole(RoleAdmin, RoleGuardian))

	var nilUser *User
	assert.False(t, nilUser.HasRole(RoleGuest))
	assert.Equal(t, RoleGuest, nilUser.PrimaryRole())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSuperadmin.Valid())
	assert.False(t, Role("root").Valid())
}

func TestUpstreamEnvelope_DecodeAuthContent(t *testing.T) {
	var env UpstreamEnvelope
	body := `{"success":true,"message":"ok","code":200,"content":{"access_token":"tok","user":{"id":9,"name":"Ada","email":"a@x.io","role":["student"]}}}`
	require.NoError(t, json.Unmarshal([]byte(body), &env))

	c := env.DecodeAuthContent()
	assert.Equal(t, "tok", c.AccessToken)
	require.NotNil(t, c.User)
	assert.Equal(t, int64(9), c.User.ID)

	empty := UpstreamEnvelope{}
	assert.Empty(t, empty.DecodeAuthContent().AccessToken)
	assert.Nil(t, empty.DecodeProfileUser())
}

func TestAPIError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want int
	}{
		{"unauthorized", ErrUnauthorized(""), http.StatusUnauthorized},
		{"timeout", ErrTimeout("slow", nil), http.StatusGatewayTimeout},
		{"network", ErrNetwork("down", nil), http.StatusInternalServerError},
		{"upstream passes status", ErrUpstream(http.StatusConflict, "dup", nil), http.StatusConflict},
		{"validation 422", ErrValidation(http.StatusUnprocessableEntity, "bad", nil), http.StatusUnprocessableEntity},
		{"validation default", &APIError{Kind: KindValidation}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
			env := tt.err.Envelope("req-1")
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Code)
			assert.Equal(t, "req-1", env.RequestID)
		})
	}
}

func TestAsAPIError(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := ErrNetwork("Request failed", cause)

	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, IsKind(wrapped, KindNetwork))
	assert.False(t, IsKind(wrapped, KindTimeout))

	plain := AsAPIError(cause)
	assert.Equal(t, KindNetwork, plain.Kind)
	assert.Same(t, wrapped, AsAPIError(wrapped))
}

func TestValidateUploadFile(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		size        int64
		wantErrs    int
	}{
		{"csv extension", "lessons.CSV", "application/octet-stream", 100, 0},
		{"txt extension", "notes.txt", "", 100, 0},
		{"mime allowed", "export", "text/csv; charset=utf-8", 100, 0},
		{"bad type", "lessons.xlsx", "application/vnd.ms-excel", 100, 1},
		{"too large", "lessons.csv", "text/csv", MaxUploadSize + 1, 1},
		{"both", "img.png", "image/png", MaxUploadSize + 1, 2},
		{"exact ceiling", "lessons.csv", "text/csv", MaxUploadSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ValidateUploadFile(tt.file, tt.contentType, tt.size), tt.wantErrs)
		})
	}
}

func TestFileRole_Naming(t *testing.T) {
	assert.Equal(t, "The check markers file field is required.", FileCheckMarkers.RequiredMessage())
	assert.Equal(t, "check_marker_file", FileCheckMarkers.UpstreamField(true))
	assert.Equal(t, "check_markers_file", FileCheckMarkers.UpstreamField(false))
	assert.Len(t, AllFileRoles, 6)
	assert.Len(t, UploadKind, 6)
}
