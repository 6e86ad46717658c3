package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a Connect error code.
type Code string

const (
	CodeCanceled           Code = "canceled"
	CodeUnknown            Code = "unknown"
	CodeInvalidArgument    Code = "invalid_argument"
	CodeDeadlineExceeded   Code = "deadline_exceeded"
	CodeNotFound           Code = "not_found"
	CodePermissionDenied   Code = "permission_denied"
	CodeResourceExhausted  Code = "resource_exhausted"
	CodeUnimplemented      Code = "unimplemented"
	CodeInternal           Code = "internal"
	CodeUnavailable        Code = "unavailable"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeFailedPrecondition Code = "failed_precondition"
)

// Error is a protocol-level failure reported by the backend.
type Error struct {
	// Procedure is the called RPC, e.g. "/api.v1.AuthService/Login".
	Procedure string
	// HTTPStatus is the response status code.
	HTTPStatus int
	Code       Code
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Procedure, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Procedure, e.Code, e.Message)
}

// IsUnauthenticated reports whether err is a backend rejection of the
// presented credential.
func IsUnauthenticated(err error) bool {
	return CodeOf(err) == CodeUnauthenticated
}

// CodeOf returns the Connect code carried by err, or "" when err is not an
// *Error.
func CodeOf(err error) Code {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return ""
}

// newError decodes a Connect error body. Bodies that are not Connect errors
// (a proxy's HTML page, an empty 502) fall back to a code derived from the
// HTTP status.
func newError(procedure string, status int, body []byte) *Error {
	e := &Error{
		Procedure:  procedure,
		HTTPStatus: status,
	}

	var wire struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Code != "" {
		e.Code = wire.Code
		e.Message = wire.Message
		return e
	}

	e.Code = codeFromHTTPStatus(status)
	e.Message = http.StatusText(status)
	return e
}

func codeFromHTTPStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case http.StatusNotImplemented:
		return CodeUnimplemented
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeUnavailable
	default:
		return CodeUnknown
	}
}
