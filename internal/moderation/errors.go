package moderation

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the structured failure surfaced to API consumers.  Message
// is returned verbatim; Code doubles as the HTTP status code of the
// response.
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *Error) Error() string { return e.Message }

// Machine-readable tags embedded in rate-limit messages so clients can
// differentiate the three anti-abuse gates without parsing prose.
const (
	TagTooSoon = "toosoon"
	TagTooLate = "toolate"
	TagPending = "pending"
)

// Validation reports missing or malformed client input (HTTP 400).
func Validation(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Code: http.StatusBadRequest}
}

// Authentication reports a missing or invalid identity token on an
// operation that requires one (HTTP 401).
func Authentication(msg string) *Error {
	return &Error{Message: msg, Code: http.StatusUnauthorized}
}

// Authorization reports an insufficient scope set (HTTP 403).
func Authorization(msg string) *Error {
	return &Error{Message: msg, Code: http.StatusForbidden}
}

// NotFound reports an absent record (HTTP 404).
func NotFound(msg string) *Error {
	return &Error{Message: msg, Code: http.StatusNotFound}
}

// RateLimited reports one of the anti-abuse gates firing.  The tag
// leads the message.  503 rather than 429 on purpose: it signals
// transient unavailability, which discourages naive client retries.
func RateLimited(tag, msg string) *Error {
	return &Error{Message: fmt.Sprintf("%s: %s", tag, msg), Code: http.StatusServiceUnavailable}
}

// Internal wraps a persistence or infrastructure failure.  The detail
// stays in the server log; callers only see this generic message.
func Internal() *Error {
	return &Error{Message: "internal error", Code: http.StatusInternalServerError}
}

// AsError unwraps err into a *Error when possible.
func AsError(err error) (*Error, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
