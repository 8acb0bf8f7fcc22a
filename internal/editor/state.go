package editor

import (
	"errors"
	"fmt"
)

// State is the editor's single source of truth for what is in flight.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSaving
	StateGenerating
	StateImporting
	StateVersionBrowsing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSaving:
		return "saving"
	case StateGenerating:
		return "generating"
	case StateImporting:
		return "importing"
	case StateVersionBrowsing:
		return "browsing versions"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrBusy               = errors.New("editor is busy")
	ErrClosed             = errors.New("editor closed")
	ErrNotLoaded          = errors.New("no project loaded")
	ErrProjectUnavailable = errors.New("project could not be loaded")
	ErrNoResult           = errors.New("no generated result to adopt")
	ErrUnsavedChanges     = errors.New("draft has unsaved changes")
	ErrNotConfirmed       = errors.New("cancelled")
	ErrSuperseded         = errors.New("superseded by a newer request")
	ErrVersionNotFound    = errors.New("version not found")
)

// BusyError reports an operation attempted in a state that does not allow it.
type BusyError struct {
	Op    string
	State State
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

func (e *BusyError) Is(target error) bool { return target == ErrBusy }

// LoadError wraps the metadata failure that aborted a load.
type LoadError struct {
	ProjectID int
	Message   string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProjectUnavailable, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrProjectUnavailable }
