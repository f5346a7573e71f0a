package supervisor

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// Stop requests termination of the owned process and clears the handle.
// Termination is not awaited. Stop is safe to call in any state and never
// signals a handle twice.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	h := s.handle
	if h == nil {
		s.mu.Unlock()
		return
	}
	s.handle = nil
	s.draining[h] = struct{}{}
	s.setState(lib.BackendStopping, h.id)
	err := h.proc.Signal(false)
	s.setState(lib.BackendIdle, h.id)
	s.mu.Unlock()

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("failed to signal backend", zap.String("run_id", h.id), zap.Error(err))
		return
	}
	s.logger.Info("backend stop requested", zap.String("run_id", h.id))
}

// Shutdown stops the backend and waits for every stopped process to exit,
// killing whatever is still alive after the grace period. It returns when
// nothing is left running or ctx is done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	pending := make([]*handle, 0, len(s.draining))
	for h := range s.draining {
		pending = append(pending, h)
	}
	s.mu.Unlock()

	grace := time.NewTimer(s.opts.StopGrace)
	defer grace.Stop()

	for _, h := range pending {
		select {
		case <-h.done:
			continue
		case <-grace.C:
		case <-ctx.Done():
		}

		s.logger.Warn("backend did not exit in time, killing", zap.String("run_id", h.id))
		if err := h.proc.Signal(true); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Error("failed to kill backend", zap.String("run_id", h.id), zap.Error(err))
		}
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		// the timer fired; later handles are killed straight away
		grace.Reset(0)
	}
	return nil
}
