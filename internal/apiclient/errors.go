package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches (errors.Is) any error produced by a 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// TransportError means no response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// EnvelopeError is a 2xx response whose envelope reported success:false.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}

// IsNotFound reports whether err is a 404, or a success:false envelope whose
// message says the resource does not exist.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound
	}
	var ee *EnvelopeError
	if errors.As(err, &ee) {
		msg := strings.ToLower(ee.Message)
		return strings.Contains(msg, "not found") || strings.Contains(msg, "不存在")
	}
	return false
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var ee *EnvelopeError
	if errors.As(err, &ee) && strings.TrimSpace(ee.Message) != "" {
		return ee.Message
	}
	var se *StatusError
	if errors.As(err, &se) && strings.TrimSpace(se.Message) != "" {
		return se.Message
	}
	return fallback
}

// OpError is a failed user-level operation. Message is what to show: the
// server's message when it sent one, otherwise the operation's fallback text.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string { return e.Message }

func (e *OpError) Unwrap() error { return e.Err }

// Wrap turns err into an *OpError for op. Nil stays nil.
func Wrap(op, fallback string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Message: Message(err, fallback), Err: err}
}
