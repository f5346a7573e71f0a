package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/capture"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/readiness"
)

// Start launches the backend. It does not wait for readiness.
//
// It returns lib.ErrAlreadyRunning while a process is owned. A missing
// backend location surfaces an "unavailable" error to the UI; a development
// checkout without its entry file only logs a warning. Spawn failures are
// surfaced to the UI and returned. In every failure case the supervisor is
// left Idle.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return lib.ErrAlreadyRunning
	}

	backend := s.opts.Resolver.Backend()
	if !backend.Found() {
		s.logger.Warn("backend path not found, backend will not start",
			zap.Stringer("mode", s.opts.Mode),
			zap.String("platform", s.opts.Platform))
		failure := lib.NewFailure(lib.PathResolutionMiss, lib.ErrBackendUnavailable)
		s.fail("", failure.Message())
		s.mu.Unlock()
		s.notify(failure.Message())
		return failure
	}

	command, err := s.command(backend)
	if err != nil {
		s.logger.Warn("backend entry not found, backend will not start",
			zap.String("dir", backend.Path))
		s.mu.Unlock()
		return lib.NewFailure(lib.PathResolutionMiss, err)
	}

	h := &handle{
		id:      lib.NewRunID(),
		command: command,
		start:   time.Now(),
		stdout:  capture.RunNewBuffer(s.opts.OutputLimit),
		stderr:  capture.RunNewBuffer(s.opts.OutputLimit),
		done:    make(chan struct{}),
	}
	stdout := &streamWriter{s: s, h: h, buf: h.stdout, stream: "stdout"}
	stderr := &streamWriter{s: s, h: h, buf: h.stderr, stream: "stderr"}
	if s.opts.Readiness == ReadinessMarkers {
		// uvicorn logs to stderr, so both streams are watched
		d := readiness.NewMarkerDetector(s.opts.Markers...)
		stdout.detector = d.Stream()
		stderr.detector = d.Stream()
	}
	s.setState(lib.BackendStarting, h.id)

	s.logger.Info("starting backend",
		zap.String("run_id", h.id),
		zap.String("command", command.Command),
		zap.Strings("args", command.Args),
		zap.String("dir", command.Dir))

	proc, err := s.launcher.Launch(command, stdout, stderr)
	if err != nil {
		h.stdout.Stop()
		h.stderr.Stop()
		s.logger.Error("backend failed to start", zap.String("run_id", h.id), zap.Error(err))
		failure := lib.NewFailure(lib.SpawnFailure, err)
		s.fail(h.id, failure.Message())
		s.mu.Unlock()
		s.notify(failure.Message())
		return failure
	}

	h.proc = proc
	h.pid = proc.Pid()
	s.handle = h
	s.last = h
	s.lastErr = ""

	if s.opts.Readiness == ReadinessHealth {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		probe := readiness.NewProbe("http://" + s.Address() + "/")
		go func() {
			if probe.Wait(ctx) == nil {
				s.markReady(h)
			}
		}()
	}
	s.mu.Unlock()

	go s.wait(h)
	return nil
}

// command builds the launch command for the resolved backend.
func (s *Supervisor) command(backend paths.Resolved) (lib.Command, error) {
	serve := []string{"--host", s.opts.Host, "--port", strconv.Itoa(s.opts.Port)}

	if s.opts.Mode == lib.ModeDevelopment {
		if !s.opts.Resolver.Entry(backend.Path).Found() {
			return lib.Command{}, fmt.Errorf("%w: %s in %s", lib.ErrEntryNotFound, paths.BackendEntry, backend.Path)
		}
		entry := strings.TrimSuffix(paths.BackendEntry, ".py") + ":app"
		return lib.Command{
			Command: s.opts.Python,
			Args:    append([]string{"-m", "uvicorn", entry}, serve...),
			Dir:     backend.Path,
			Shell:   true,
		}, nil
	}

	return lib.Command{Command: backend.Path, Args: serve}, nil
}

// markReady moves Starting → Running once, for the current handle only.
func (s *Supervisor) markReady(h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != h || s.state != lib.BackendStarting {
		return
	}
	s.setState(lib.BackendRunning, h.id)
	s.logger.Info("backend server started successfully", zap.String("run_id", h.id))
}

// wait observes the exit of h.
func (s *Supervisor) wait(h *handle) {
	err := h.proc.Wait()

	h.stdout.Stop()
	h.stderr.Stop()
	if h.cancel != nil {
		h.cancel()
	}

	s.mu.Lock()
	now := time.Now()
	h.end = &now
	h.exitCode = exitCode(err)
	delete(s.draining, h)

	if s.handle != h {
		// stopped explicitly, or a late event for a replaced handle
		s.mu.Unlock()
		close(h.done)
		s.logger.Info("backend exited after stop",
			zap.String("run_id", h.id),
			zap.Error(err))
		return
	}

	s.handle = nil
	var msg string
	if err != nil {
		msg = fmt.Sprintf("Backend exited unexpectedly: %v", err)
		s.logger.Error("backend crashed",
			zap.String("run_id", h.id),
			zap.Error(err),
			zap.String("stderr_tail", h.stderr.Tail(2048)))
		s.fail(h.id, msg)
	} else {
		s.logger.Info("backend exited", zap.String("run_id", h.id))
		s.setState(lib.BackendIdle, h.id)
	}
	s.mu.Unlock()
	close(h.done)

	if msg != "" {
		s.notify(msg)
	}
}

func exitCode(err error) *int {
	code := 0
	if err == nil {
		return &code
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		code = coder.ExitCode()
		return &code
	}
	return nil
}

// streamWriter tees one output stream into its capture buffer, the log and
// the readiness detector.
type streamWriter struct {
	s        *Supervisor
	h        *handle
	buf      *capture.Buffer
	stream   string
	detector readiness.Detector
}

func (w *streamWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)

	text := strings.TrimRight(string(p), "\r\n")
	if text != "" {
		fields := []zap.Field{zap.String("run_id", w.h.id), zap.String("stream", w.stream), zap.String("text", text)}
		if w.stream == "stderr" {
			w.s.logger.Warn("backend output", fields...)
		} else {
			w.s.logger.Info("backend output", fields...)
		}
	}

	if w.detector != nil && w.detector.Observe(p) {
		w.s.markReady(w.h)
	}
	return n, err
}
