package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// journal records calls from every fake in order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	j.calls = append(j.calls, call)
	j.mu.Unlock()
}

func (j *journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *journal) Count(call string) int {
	n := 0
	for _, c := range j.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeBackend struct {
	j        *journal
	startErr error
}

func (b *fakeBackend) Start() error { b.j.add("start"); return b.startErr }
func (b *fakeBackend) Stop()        { b.j.add("stop") }

func (b *fakeBackend) Shutdown(context.Context) error {
	b.j.add("shutdown")
	return nil
}

type fakeWindows struct {
	j         *journal
	createErr error

	mu   sync.Mutex
	open int
}

func (w *fakeWindows) CreateWindow() error {
	w.j.add("create")
	if w.createErr != nil {
		return w.createErr
	}
	w.mu.Lock()
	w.open = 1
	w.mu.Unlock()
	return nil
}

func (w *fakeWindows) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// userClose simulates the user closing the window.
func (w *fakeWindows) userClose() {
	w.mu.Lock()
	w.open = 0
	w.mu.Unlock()
}

func (w *fakeWindows) Close() error {
	w.j.add("close")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == 0 {
		return lib.ErrNoWindow
	}
	w.open = 0
	return nil
}

func newCoordinator(t *testing.T, platform string) (*Coordinator, *journal, *fakeWindows, context.CancelFunc) {
	t.Helper()
	j := &journal{}
	wins := &fakeWindows{j: j}
	c := New(Options{Platform: platform, Backend: &fakeBackend{j: j}, Windows: wins})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, j, wins, cancel
}

func waitDone(t *testing.T, c *Coordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not finish")
	}
}

const waitFor, tick = 2 * time.Second, 5 * time.Millisecond

func TestReady_StartsBackendThenWindow(t *testing.T) {
	c, j, _, _ := newCoordinator(t, "linux")

	c.Ready()
	require.Eventually(t, func() bool { return len(j.Calls()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"start", "create"}, j.Calls())
	assert.Equal(t, Ready, c.State())

	// a second ready is ignored
	c.Ready()
	c.Activate()
	require.Eventually(t, func() bool { return len(j.Calls()) == 3 }, waitFor, tick)
	assert.Equal(t, 1, j.Count("start"))
}

func TestReady_BackendFailureStillOpensWindow(t *testing.T) {
	j := &journal{}
	c := New(Options{
		Platform: "linux",
		Backend:  &fakeBackend{j: j, startErr: lib.NewFailure(lib.PathResolutionMiss, lib.ErrBackendUnavailable)},
		Windows:  &fakeWindows{j: j},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	c.Ready()
	require.Eventually(t, func() bool { return j.Count("create") == 1 }, waitFor, tick)
	assert.Equal(t, Ready, c.State())
}

func TestAllWindowsClosed_StopsBeforeQuitting(t *testing.T) {
	c, j, wins, _ := newCoordinator(t, "linux")

	c.Ready()
	require.Eventually(t, func() bool { return wins.Count() == 1 }, waitFor, tick)

	wins.userClose()
	c.AllWindowsClosed()
	waitDone(t, c)

	assert.Equal(t, []string{"start", "create", "stop", "stop", "shutdown", "close"}, j.Calls())
	assert.Equal(t, Terminated, c.State())
}

func TestAllWindowsClosed_DarwinStaysAlive(t *testing.T) {
	c, j, wins, _ := newCoordinator(t, "darwin")

	c.Ready()
	require.Eventually(t, func() bool { return wins.Count() == 1 }, waitFor, tick)

	wins.userClose()
	c.AllWindowsClosed()
	require.Eventually(t, func() bool { return j.Count("stop") == 1 }, waitFor, tick)

	select {
	case <-c.Done():
		t.Fatal("must keep running with zero windows")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, Ready, c.State())
}

func TestActivate_RecreatesWindowWithoutBackendStart(t *testing.T) {
	c, j, wins, _ := newCoordinator(t, "darwin")

	c.Ready()
	require.Eventually(t, func() bool { return wins.Count() == 1 }, waitFor, tick)
	wins.userClose()
	c.AllWindowsClosed()

	c.Activate()
	require.Eventually(t, func() bool { return j.Count("create") == 2 }, waitFor, tick)

	assert.Equal(t, 1, wins.Count())
	assert.Equal(t, 1, j.Count("start"))
	assert.Equal(t, []string{"start", "create", "stop", "create"}, j.Calls())
}

func TestActivate_BeforeReadyIgnored(t *testing.T) {
	c, j, _, _ := newCoordinator(t, "linux")

	c.Activate()
	c.Ready()
	require.Eventually(t, func() bool { return len(j.Calls()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"start", "create"}, j.Calls())
}

func TestQuit_StopsBackendUnconditionally(t *testing.T) {
	c, j, _, _ := newCoordinator(t, "darwin")

	c.Ready()
	c.Quit()
	waitDone(t, c)

	calls := j.Calls()
	require.GreaterOrEqual(t, len(calls), 4)
	assert.Equal(t, []string{"stop", "shutdown", "close"}, calls[len(calls)-3:])
	assert.Equal(t, Terminated, c.State())
}

func TestQuit_BeforeReady(t *testing.T) {
	c, j, _, _ := newCoordinator(t, "linux")

	c.Quit()
	waitDone(t, c)
	assert.Equal(t, []string{"stop", "shutdown", "close"}, j.Calls())
}

func TestContextCancelIsQuit(t *testing.T) {
	c, j, wins, cancel := newCoordinator(t, "darwin")

	c.Ready()
	require.Eventually(t, func() bool { return wins.Count() == 1 }, waitFor, tick)

	cancel()
	waitDone(t, c)
	assert.Equal(t, 1, j.Count("shutdown"))
	assert.Equal(t, 0, wins.Count())

	// events after termination are dropped, not blocked on
	c.Activate()
}

func TestWindowCreateErrorIsContained(t *testing.T) {
	j := &journal{}
	wins := &fakeWindows{j: j, createErr: errors.New("no chrome installation found")}
	core, logs := observer.New(zap.ErrorLevel)
	c := New(Options{Platform: "linux", Backend: &fakeBackend{j: j}, Windows: wins, Logger: zap.New(core)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	c.Ready()
	require.Eventually(t, func() bool { return j.Count("create") == 1 }, waitFor, tick)
	assert.Equal(t, Ready, c.State())

	// the user is told how to get out of a windowless run
	require.Eventually(t, func() bool {
		return logs.FilterMessage("running without a window").Len() == 1
	}, waitFor, tick)
	hint := logs.FilterMessage("running without a window").All()[0].ContextMap()["hint"]
	assert.Contains(t, hint, "psi-desktop quit")
}
