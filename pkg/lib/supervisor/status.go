package supervisor

import (
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// State returns the current lifecycle state.
func (s *Supervisor) State() lib.BackendState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the current process, or of the last one when
// nothing is running.
func (s *Supervisor) Status() lib.BackendStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := lib.BackendStatus{State: s.state, LastError: s.lastErr}
	h := s.handle
	if h == nil {
		h = s.last
	}
	if h == nil {
		return st
	}

	cmd := h.command
	cmd.Args = append([]string(nil), h.command.Args...)
	st.RunID = h.id
	st.Pid = h.pid
	st.Command = &cmd
	st.StartTime = h.start
	if h.exitCode != nil {
		code := *h.exitCode
		st.ExitCode = &code
	}
	if h.end != nil {
		end := *h.end
		st.EndTime = &end
	}
	return st
}
