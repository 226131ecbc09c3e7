// ABOUTME: Uniform JSON response envelope shared with the upstream API
// ABOUTME: Shape is {success, message, content, code} plus optional diagnostics

package models

import "encoding/json"

// Envelope is the response body for every local route.
// Code always mirrors the HTTP status.
type Envelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Content   any                 `json:"content"`
	Code      int                 `json:"code"`
	Errors    map[string][]string `json:"errors,omitempty"`
	ErrorCode string              `json:"errorCode,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
	User      *User               `json:"user,omitempty"`
}

// UpstreamEnvelope is the decoded form of an upstream response.
// Content stays raw so each route decodes only what it needs.
type UpstreamEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Content json.RawMessage     `json:"content"`
	Code    json.Number         `json:"code"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// AuthContent is the content block returned by login, verify-email and the
// Google callback.
type AuthContent struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// ProfileContent is the content block returned by /profile.
type ProfileContent struct {
	User *User `json:"user"`
}

// DecodeAuthContent extracts access_token and user from the envelope content.
// Missing or malformed content yields a zero value.
func (e *UpstreamEnvelope) DecodeAuthContent() AuthContent {
	var c AuthContent
	if len(e.Content) == 0 {
		return c
	}
	_ = json.Unmarshal(e.Content, &c)
	return c
}

// DecodeProfileUser extracts content.user, or nil.
func (e *UpstreamEnvelope) DecodeProfileUser() *User {
	var c ProfileContent
	if len(e.Content) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return nil
	}
	return c.User
}

// OK builds a success envelope.
func OK(message string, content any) Envelope {
	return Envelope{Success: true, Message: message, Content: content, Code: 200}
}
