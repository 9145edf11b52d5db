package errs

import (
	"errors"
	"fmt"
)

// Application error codes. The http package maps these to status codes,
// service code uses them to decide what is retryable and what is not.
const (
	ECONFLICT     = "conflict"     // uniqueness violation (duplicate like, follow, feed entry)
	EINTERNAL     = "internal"     // programming error or unreachable state
	EINVALID      = "invalid"      // validation failed, request rejected
	ENOTFOUND     = "not_found"    // referenced entity does not exist
	EUNAUTHORIZED = "unauthorized" // missing or invalid session
	EUNAVAILABLE  = "unavailable"  // transient infrastructure failure (cache store, task queue)
)

// Error is an application error carrying a machine-readable code and a
// message safe to show to end users.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("chirper error: code=%s message=%s", e.Code, e.Message)
}

// Errorf builds an *Error with the given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of any error. Errors that aren't application
// errors report EINTERNAL, so unexpected failures never leak internals.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	}
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the user-facing message of any error.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	}
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}
