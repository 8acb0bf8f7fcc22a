package model

import "fmt"

// ValidationError is a client-side rejection; the request never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
