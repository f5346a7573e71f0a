//go:build !windows

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
	"github.com/SanjoDeundiak/psi-desktop/pkg/lib/paths"
)

// readAll collects all bytes from a subscription channel until it closes.
func readAll(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	var out []byte
	for b := range ch {
		out = append(out, b...)
	}
	return string(out)
}

// scriptBackend writes an executable shell script posing as the packaged
// backend and returns a supervisor that launches it for real.
func scriptBackend(t *testing.T, body string) (*Supervisor, *recorder) {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, paths.BackendExecutable)
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	r := paths.NewResolver(lib.ModePackaged, "linux", "", dir)
	r.BackendOverride = script

	rec := &recorder{}
	s := New(Options{Mode: lib.ModePackaged, Platform: "linux", Resolver: r, Notifier: rec, StopGrace: time.Second})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		s.Close()
	})
	return s, rec
}

func waitState(t *testing.T, s *Supervisor, want lib.BackendState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state %v not reached, still %v", want, s.State())
}

func TestExec_StartReadyAndOutput(t *testing.T) {
	s, _ := scriptBackend(t, `echo "args: $*"; echo "INFO:     Application startup complete."; echo warn 1>&2; sleep 10`)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitState(t, s, lib.BackendRunning)

	st := s.Status()
	if st.Pid == 0 || st.RunID == "" {
		t.Fatalf("expected pid and run id, got %+v", st)
	}

	stdout, stderr, err := s.Output(context.Background())
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	s.Stop()
	waitState(t, s, lib.BackendIdle)

	var wg sync.WaitGroup
	wg.Add(2)
	var out, errOut string
	go func() { defer wg.Done(); out = readAll(t, stdout) }()
	go func() { defer wg.Done(); errOut = readAll(t, stderr) }()
	wg.Wait()

	want := "args: --host 127.0.0.1 --port 8000\nINFO:     Application startup complete.\n"
	if out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	if errOut != "warn\n" {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestExec_StopTerminatesProcessGroup(t *testing.T) {
	// the child sleep shares the script's process group
	s, rec := scriptBackend(t, `sleep 30 & wait`)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	st := s.Status()
	if st.EndTime == nil {
		t.Fatalf("expected the process to have exited")
	}
	if len(rec.Messages()) != 0 {
		t.Fatalf("stop must not be reported as a crash: %v", rec.Messages())
	}
}

func TestExec_CrashIsReported(t *testing.T) {
	s, rec := scriptBackend(t, `echo "ImportError: no module named fastapi" 1>&2; exit 3`)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(rec.Messages()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if len(rec.Messages()) != 1 {
		t.Fatalf("expected one error message, got %v", rec.Messages())
	}

	st := s.Status()
	if st.State != lib.BackendIdle {
		t.Fatalf("expected Idle after crash, got %v", st.State)
	}
	if st.ExitCode == nil || *st.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", st.ExitCode)
	}

	stdout, stderr, err := s.Output(context.Background())
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	_ = readAll(t, stdout)
	if got := readAll(t, stderr); got != "ImportError: no module named fastapi\n" {
		t.Fatalf("stderr replay = %q", got)
	}
}

func TestExec_MissingExecutableIsSpawnFailure(t *testing.T) {
	r := paths.NewResolver(lib.ModePackaged, "linux", "", t.TempDir()).
		WithStat(func(string) (os.FileInfo, error) { return nil, nil })
	r.BackendOverride = filepath.Join(t.TempDir(), "missing", paths.BackendExecutable)

	rec := &recorder{}
	s := New(Options{Mode: lib.ModePackaged, Resolver: r, Notifier: rec})
	defer s.Close()

	err := s.Start()
	if !lib.IsKind(err, lib.SpawnFailure) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
	if s.State() != lib.BackendIdle {
		t.Fatalf("expected Idle, got %v", s.State())
	}
	if len(rec.Messages()) != 1 {
		t.Fatalf("expected the failure to reach the UI once, got %v", rec.Messages())
	}
}
