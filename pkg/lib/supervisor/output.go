package supervisor

import (
	"context"
	"os"
)

// Output subscribes to the captured stdout and stderr of the current or last
// backend process. Each channel replays what is retained, follows new output
// and closes once the process has exited or ctx is done. os.ErrNotExist is returned when
// no process was ever started.
func (s *Supervisor) Output(ctx context.Context) (<-chan []byte, <-chan []byte, error) {
	s.mu.Lock()
	h := s.handle
	if h == nil {
		h = s.last
	}
	s.mu.Unlock()
	if h == nil {
		return nil, nil, os.ErrNotExist
	}

	stdout := h.stdout.Subscribe(ctx, 5)
	stderr := h.stderr.Subscribe(ctx, 5)
	return stdout, stderr, nil
}
