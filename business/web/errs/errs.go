// Package errs provides the error types handlers use to report expected
// failures to clients.
package errs

import (
	"errors"
	"net/http"
)

// Response is the body sent to clients when a request fails.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to return to the client with
// the given status.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. Handlers use
// it for failures the client caused or can act on.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// NotFound wraps the error as a trusted 404.
func NotFound(err error) error {
	return &Trusted{err, http.StatusNotFound}
}

// Conflict wraps the error as a trusted 409.
func Conflict(err error) error {
	return &Trusted{err, http.StatusConflict}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap returns the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns the Trusted error in the chain, if any.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}
