// Package supervisor owns the backend server process: it launches it,
// captures its output, watches for readiness and exit, and tears it down.
//
// At most one process is owned at a time. Every handle carries a run id, so
// an exit observed for a handle that is no longer current is ignored.
package supervisor

import (
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/capture"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 8000
	DefaultStopGrace = 5 * time.Second

	ReadinessMarkers = "markers"
	ReadinessHealth  = "health"
)

// Resolver is the part of the path resolver the supervisor consults.
type Resolver interface {
	Backend() paths.Resolved
	Entry(backendDir string) paths.Resolved
}

// Notifier receives messages meant for the in-app error banner.
type Notifier interface {
	BackendError(message string)
}

// Options configure a Supervisor.
type Options struct {
	Mode     lib.RuntimeMode
	Platform string
	Resolver Resolver

	Host string
	Port int
	// Python is the interpreter used in development.
	Python string

	// Readiness selects "markers" (stdout/stderr phrases) or "health"
	// (HTTP poll of the backend root).
	Readiness string
	Markers   []string

	OutputLimit int
	StopGrace   time.Duration

	Launcher Launcher
	Notifier Notifier
	Logger   *zap.Logger
}

// Supervisor is the backend lifecycle state machine:
// Idle → Starting → Running → (Stopping → Idle) | (Crashed → Idle).
type Supervisor struct {
	opts     Options
	logger   *zap.Logger
	launcher Launcher

	mu       sync.Mutex
	state    lib.BackendState
	handle   *handle
	last     *handle // most recent handle, kept for diagnostics
	lastErr  string
	draining map[*handle]struct{}
	notifier Notifier

	states *capture.Broadcaster[lib.StateChange]
}

type handle struct {
	id      string
	command lib.Command
	proc    Process
	pid     int
	start   time.Time

	// set under Supervisor.mu once the process exits
	exitCode *int
	end      *time.Time

	stdout *capture.Buffer
	stderr *capture.Buffer
	cancel func()
	done   chan struct{}
}

// New creates an idle Supervisor.
func New(opts Options) *Supervisor {
	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Python == "" {
		opts.Python = defaultPython(opts.Platform)
	}
	if opts.Readiness == "" {
		opts.Readiness = ReadinessMarkers
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	return &Supervisor{
		opts:     opts,
		logger:   logger,
		launcher: launcher,
		notifier: opts.Notifier,
		draining: make(map[*handle]struct{}),
		states:   capture.RunNewBroadcaster[lib.StateChange](),
	}
}

// SetNotifier replaces the error sink. The window controller is usually
// constructed after the supervisor.
func (s *Supervisor) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Address is the host:port the backend is told to listen on.
func (s *Supervisor) Address() string {
	return s.opts.Host + ":" + strconv.Itoa(s.opts.Port)
}

// setState records a transition and publishes it. Callers hold mu.
func (s *Supervisor) setState(to lib.BackendState, runID string) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.logger.Debug("backend state",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("run_id", runID))
	s.states.Publish(lib.StateChange{From: from, To: to, RunID: runID})
}

// fail walks through Crashed back to Idle and records msg. Callers hold mu.
func (s *Supervisor) fail(runID, msg string) {
	s.setState(lib.BackendCrashed, runID)
	s.lastErr = msg
	s.setState(lib.BackendIdle, runID)
}

func (s *Supervisor) notify(msg string) {
	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.BackendError(msg)
	}
}

// Subscribe follows state transitions. The channel closes on Close.
func (s *Supervisor) Subscribe(capacity int) (chan lib.StateChange, error) {
	return s.states.Subscribe(capacity)
}

// Unsubscribe releases a channel returned by Subscribe.
func (s *Supervisor) Unsubscribe(ch chan lib.StateChange) {
	s.states.Unsubscribe(ch)
}

// Close releases state subscribers. It does not touch the process.
func (s *Supervisor) Close() {
	s.states.Stop()
}

func defaultPython(platform string) string {
	if platform == "windows" {
		return "python"
	}
	return "python3"
}
