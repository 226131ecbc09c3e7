// ABOUTME: Error taxonomy for relay routes
// ABOUTME: Every failure maps to a status code and a JSON envelope

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a relay failure.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindUpstream     ErrorKind = "upstream"
	KindTimeout      ErrorKind = "timeout"
	KindNetwork      ErrorKind = "network"
	KindValidation   ErrorKind = "validation"
)

// Session-check error codes returned in Envelope.ErrorCode.
const (
	ErrCodeNoAuthCookies   = "NO_AUTH_COOKIES"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
)

// APIError carries everything a handler needs to render a failure.
type APIError struct {
	Kind      ErrorKind
	Status    int
	Message   string
	ErrorCode string
	Fields    map[string][]string
	// Body is the raw upstream body for KindUpstream, relayed verbatim.
	Body []byte
	Err  error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status the error maps to.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Envelope renders the error as a response body.
func (e *APIError) Envelope(requestID string) Envelope {
	return Envelope{
		Success:   false,
		Message:   e.Message,
		Content:   nil,
		Code:      e.HTTPStatus(),
		Errors:    e.Fields,
		ErrorCode: e.ErrorCode,
		RequestID: requestID,
	}
}

func ErrUnauthorized(message string) *APIError {
	if message == "" {
		message = "Unauthorized"
	}
	return &APIError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func ErrValidation(status int, message string, fields map[string][]string) *APIError {
	return &APIError{Kind: KindValidation, Status: status, Message: message, Fields: fields}
}

func ErrTimeout(message string, err error) *APIError {
	return &APIError{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: message, Err: err}
}

func ErrNetwork(message string, err error) *APIError {
	return &APIError{Kind: KindNetwork, Status: http.StatusInternalServerError, Message: message, Err: err}
}

func ErrUpstream(status int, message string, body []byte) *APIError {
	return &APIError{Kind: KindUpstream, Status: status, Message: message, Body: body}
}

// AsAPIError unwraps err into an *APIError, wrapping unknown errors as network failures.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrNetwork("Request failed", err)
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
