// Package errors defines the failure taxonomy shared by the device client,
// the reconciler, the change watcher and the log stream client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for fatal configuration problems
var (
	ErrMissingHost      = errors.New("device host is not configured")
	ErrMissingUsername  = errors.New("device username is not configured")
	ErrMissingPassword  = errors.New("device password is not configured")
	ErrMissingPort      = errors.New("log stream port is not configured")
	ErrMissingWatchPath = errors.New("watch path is not configured")

	ErrScriptNotFound = errors.New("script not found on device")
)

// ClientRequestError is returned for HTTP 4xx responses, including a failed
// digest handshake (401).
type ClientRequestError struct {
	Code int
	Body string
}

func (e *ClientRequestError) Error() string {
	return fmt.Sprintf("request to the device was rejected: response code %d", e.Code)
}

// ServerError is returned for HTTP 5xx responses. Body is nil when the
// response body could not be read.
type ServerError struct {
	Code int
	Body *string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("device reported an internal failure: response code %d", e.Code)
	if e.Body != nil && *e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, *e.Body)
	}
	return msg
}

// ParseError is returned when a device response does not match the schema
// expected for its endpoint.
type ParseError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to parse %s response: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("unable to parse %s response: %s", e.Endpoint, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError is a connection-level failure; the request may never have
// reached the device.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// LocalIOError wraps a failed local file read or directory enumeration.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }

// Wrap wraps an error with additional context
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is checks if the error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As checks if the error can be unwrapped to the target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need only this package
func New(text string) error {
	return errors.New(text)
}

// IsRetryable reports whether err is worth retrying without operator action.
// Only transport failures qualify: 4xx, 5xx and parse failures are not retried.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConfigError reports whether err is one of the fatal configuration sentinels.
func IsConfigError(err error) bool {
	for _, target := range []error{ErrMissingHost, ErrMissingUsername, ErrMissingPassword, ErrMissingPort, ErrMissingWatchPath} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status carried by a client or server failure, or 0.
func StatusCode(err error) int {
	var ce *ClientRequestError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
