// Package lifecycle turns application events into ordered calls on the
// backend supervisor and the window controller.
//
// All events are handled on one goroutine, so the backend and window
// handles are only ever driven from a single place.
package lifecycle

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// State is the coarse application state.
type State int

const (
	NotReady State = iota
	Ready
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "not-ready"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is an application event.
type Event int

const (
	EventReady Event = iota
	EventAllWindowsClosed
	EventActivate
	EventBeforeQuit
)

func (e Event) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventAllWindowsClosed:
		return "all-windows-closed"
	case EventActivate:
		return "activate"
	case EventBeforeQuit:
		return "before-quit"
	default:
		return "unknown"
	}
}

// Backend is the supervisor as seen by the coordinator.
type Backend interface {
	Start() error
	Stop()
	Shutdown(ctx context.Context) error
}

// Windows is the window controller as seen by the coordinator.
type Windows interface {
	CreateWindow() error
	Count() int
	Close() error
}

const DefaultShutdownTimeout = 10 * time.Second

// Options configure a Coordinator.
type Options struct {
	// Platform decides whether the app outlives its last window; on darwin
	// it does.
	Platform        string
	Backend         Backend
	Windows         Windows
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Coordinator owns the application lifecycle.
type Coordinator struct {
	opts   Options
	logger *zap.Logger

	events chan Event
	done   chan struct{}

	mu    sync.Mutex
	state State
}

// New creates a Coordinator in the NotReady state. Nothing happens until Run.
func New(opts Options) *Coordinator {
	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		opts:   opts,
		logger: logger,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// State returns the current application state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("app state", zap.Stringer("from", from), zap.Stringer("to", s))
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Dispatch queues ev for the event loop. Events sent after the loop has
// finished are dropped.
func (c *Coordinator) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) Ready()            { c.Dispatch(EventReady) }
func (c *Coordinator) AllWindowsClosed() { c.Dispatch(EventAllWindowsClosed) }
func (c *Coordinator) Activate()         { c.Dispatch(EventActivate) }
func (c *Coordinator) Quit()             { c.Dispatch(EventBeforeQuit) }

// Run handles events until the application quits. Cancelling ctx counts as
// a quit request.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("quit requested by signal")
			c.quit()
			return nil
		case ev := <-c.events:
			if c.handle(ev) {
				return nil
			}
		}
	}
}

// handle processes one event and reports whether the loop should end.
func (c *Coordinator) handle(ev Event) bool {
	state := c.State()
	c.logger.Debug("app event", zap.Stringer("event", ev), zap.Stringer("state", state))

	switch ev {
	case EventReady:
		if state != NotReady {
			return false
		}
		c.setState(Ready)
		// the window does not wait for the backend
		if err := c.opts.Backend.Start(); err != nil {
			c.logger.Warn("backend did not start", zap.Error(err))
		}
		if c.createWindow() != nil {
			c.logger.Error("running without a window",
				zap.String("hint", "psi-desktop open retries, psi-desktop quit exits"))
		}

	case EventAllWindowsClosed:
		if state != Ready {
			return false
		}
		c.opts.Backend.Stop()
		if c.opts.Platform != "darwin" {
			c.quit()
			return true
		}
		c.logger.Info("all windows closed, staying alive")

	case EventActivate:
		if state != Ready {
			return false
		}
		if c.opts.Windows.Count() == 0 {
			c.logger.Info("activated with no windows, recreating")
		}
		c.createWindow()

	case EventBeforeQuit:
		c.quit()
		return true
	}
	return false
}

func (c *Coordinator) createWindow() error {
	err := c.opts.Windows.CreateWindow()
	if err != nil {
		c.logger.Error("failed to create window", zap.Error(err))
	}
	return err
}

func (c *Coordinator) quit() {
	c.setState(ShuttingDown)

	c.opts.Backend.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ShutdownTimeout)
	defer cancel()
	if err := c.opts.Backend.Shutdown(ctx); err != nil {
		c.logger.Error("backend shutdown incomplete", zap.Error(err))
	}

	if err := c.opts.Windows.Close(); err != nil && !errors.Is(err, lib.ErrNoWindow) {
		c.logger.Warn("failed to close window", zap.Error(err))
	}

	c.setState(Terminated)
	c.logger.Info("application terminated")
}
