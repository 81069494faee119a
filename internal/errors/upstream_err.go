package errors

import (
	"fmt"
)

// UpstreamError is returned when the provider could not be reached or
// answered with a non-success status. A zero status means no response was
// received at all.
type UpstreamError struct {
	status int
	hint   string
	cause  error
}

func NewUpstreamError(status int, hint string) *UpstreamError {
	return &UpstreamError{
		status: status,
		hint:   hint,
	}
}

func NewUnreachableError(cause error) *UpstreamError {
	hint := ""
	if cause != nil {
		hint = cause.Error()
	}

	return &UpstreamError{
		hint:  hint,
		cause: cause,
	}
}

func (ue *UpstreamError) Error() string {
	if ue.status == 0 {
		return "provider is unreachable"
	}

	return fmt.Sprintf("provider did not respond OK (%d)", ue.status)
}

func (ue *UpstreamError) Status() int {
	return ue.status
}

func (ue *UpstreamError) Hint() string {
	return ue.hint
}

func (ue *UpstreamError) Unwrap() error {
	return ue.cause
}

func (ue *UpstreamError) Upstream() {}
