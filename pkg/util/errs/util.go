package errs

import (
	"errors"
	"fmt"
)

var (
	ErrMissingConfig = errors.New("config is missing")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used for failures caused by the remote party,
// like a session server rejecting a stale access token,
// that should not spam the default log.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func NewSilentErr(format string, a ...interface{}) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

func WrapSilent(wrappedErr error) error {
	return &SilentError{wrappedErr}
}

func (e *SilentError) Unwrap() error { return e.error }

// IsSilent reports whether err or any error it wraps is a SilentError.
func IsSilent(err error) bool {
	var s *SilentError
	return errors.As(err, &s)
}
