package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationFailed is returned when the authentication server refused
	// the credentials or answered with an unusable response.
	// The caller must ask for credentials again instead of retrying,
	// repeated failed attempts may get the account locked.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrMalformedResponse is returned when a response misses required fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidPublicKey is returned when the server public key is not a DER encoded RSA public key.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrEncryptionFailed is returned when RSA encryption did not produce a valid ciphertext.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrRandomSource is returned when the random source could not supply enough entropy.
	ErrRandomSource = errors.New("random source unavailable")
	// ErrJoinRejected is returned when the session server refused a join.
	ErrJoinRejected = errors.New("session join rejected")
	// ErrRejected is returned when a connecting client could not be verified.
	// The server must disconnect the client.
	ErrRejected = errors.New("session verification rejected")
	// ErrInvalidState is returned when an operation is not allowed in the session's current state.
	ErrInvalidState = errors.New("invalid session state")
)

// TransportError is returned by a Transport when a request failed
// on the network or the server responded with a non-2xx status code.
type TransportError struct {
	Method string
	URL    string
	// StatusCode is the http status code or
	// 0 if no response was received at all.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		s := fmt.Sprintf("%s %s: unexpected status code %d (%s)",
			e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
		if e.Err != nil {
			s += ": " + e.Err.Error()
		}
		return s
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Responded reports whether the server answered at all.
// A TransportError without response is usually worth retrying with backoff.
func (e *TransportError) Responded() bool { return e.StatusCode != 0 }

// respondedErr reports whether err is a TransportError carrying a status code.
func respondedErr(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Responded()
}
