package lib

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while a backend process is owned.
	ErrAlreadyRunning = errors.New("backend already running")
	// ErrBackendUnavailable means no backend location exists for this platform.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEntryNotFound means the development backend directory lacks its entry file.
	ErrEntryNotFound = errors.New("backend entry not found")
	// ErrNoWindow is returned when an operation needs an open window.
	ErrNoWindow = errors.New("no window")
)

// FailureKind classifies failures of the shell. None of them is fatal.
type FailureKind int

const (
	PathResolutionMiss FailureKind = iota
	SpawnFailure
	BackendCrash
	WindowLoadFailure
)

func (k FailureKind) String() string {
	switch k {
	case PathResolutionMiss:
		return "path resolution miss"
	case SpawnFailure:
		return "spawn failure"
	case BackendCrash:
		return "backend crash"
	case WindowLoadFailure:
		return "window load failure"
	default:
		return "unknown failure"
	}
}

// Failure wraps an error with its kind.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Message is the text shown to the user in the in-app error banner.
func (f *Failure) Message() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Err.Error()
}

// NewFailure wraps err as a Failure of the given kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
