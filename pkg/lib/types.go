package lib

import "time"

// RuntimeMode tells whether the shell runs from a source checkout or from a
// packaged installation. It is decided once at startup.
type RuntimeMode int

const (
	ModeDevelopment RuntimeMode = iota
	ModePackaged
)

func (m RuntimeMode) String() string {
	switch m {
	case ModeDevelopment:
		return "development"
	case ModePackaged:
		return "packaged"
	default:
		return "unknown"
	}
}

// BackendState is the lifecycle state of the supervised backend process.
type BackendState int

const (
	BackendIdle BackendState = iota
	BackendStarting
	BackendRunning
	BackendStopping
	BackendCrashed
)

func (s BackendState) String() string {
	switch s {
	case BackendIdle:
		return "idle"
	case BackendStarting:
		return "starting"
	case BackendRunning:
		return "running"
	case BackendStopping:
		return "stopping"
	case BackendCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Command captures how a backend process is launched.
type Command struct {
	Command string
	Args    []string
	Dir     string
	// Shell runs Command and Args through the platform shell.
	Shell bool
}

// BackendStatus is a snapshot of the supervisor.
type BackendStatus struct {
	State     BackendState
	RunID     string
	Pid       int
	Command   *Command
	ExitCode  *int
	StartTime time.Time
	EndTime   *time.Time
	LastError string
}

// StateChange is published on every backend state transition.
type StateChange struct {
	From  BackendState
	To    BackendState
	RunID string
}
