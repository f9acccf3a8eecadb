package humhub

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed HumHub request.
type ErrorKind string

const (
	// KindConfig means the request was never sent: a required setting
	// or credential is missing or unusable.
	KindConfig ErrorKind = "config"

	// KindNetwork means the request could not be sent or no response arrived.
	KindNetwork ErrorKind = "network"

	// KindHTTP means a non-2xx status or an unexpected content type.
	KindHTTP ErrorKind = "http"

	// KindParse means the body was empty, malformed or of an unknown shape.
	KindParse ErrorKind = "parse"

	// KindProcessing means an item could not be normalized.
	KindProcessing ErrorKind = "processing"
)

// FetchError is returned by every Client operation that fails.
type FetchError struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" if err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsAuthError reports whether err (or any error in its chain) is a
// rejected or expired credential.
func IsAuthError(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if fe.Status == http.StatusUnauthorized || fe.Status == http.StatusForbidden {
		return true
	}
	return errors.Is(fe.Err, ErrTokenExpired)
}

func newError(kind ErrorKind, op string, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Op: op, Status: status, Err: err}
}
