package cli

import (
	"errors"
	"fmt"
	"strconv"

	"plotline-cli/internal/apiclient"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind string, id int) error {
	return notFoundError{kind: kind, id: strconv.Itoa(id)}
}

type sessionExpiredError struct {
	err error
}

func (e sessionExpiredError) Error() string {
	return "session expired; run `plotline login`"
}

func (e sessionExpiredError) Unwrap() error { return e.err }

type invalidArgError struct {
	arg   string
	value string
}

func (e invalidArgError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.arg, e.value)
}

// explain maps client errors to what a terminal user should read.
func explain(err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return sessionExpiredError{err: err}
	}
	return err
}

func parseID(arg, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, invalidArgError{arg: arg, value: s}
	}
	return n, nil
}
