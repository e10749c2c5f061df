package scan

import "fmt"

// Code is the machine token rendered in the error envelope of a failed scan.
type Code string

const (
	CodeInvalidInput         Code = "InvalidInput"
	CodeVideoNotFound        Code = "VideoNotFound"
	CodeExtractionFailed     Code = "ExtractionFailed"
	CodeIdentificationFailed Code = "IdentificationFailed"
	CodeUpstreamError        Code = "UpstreamError"
)

// Error is a terminal per-request scan failure. Errors carry no retry
// state; callers may retry the whole request.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a scan error with a formatted human-readable message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches an upstream cause to a scan error.
func WrapError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
