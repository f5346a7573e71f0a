//go:build windows

package supervisor

import (
	"bytes"
	"testing"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// childPIDs lists the processes whose parent is pid.
func childPIDs(t *testing.T, pid int) []uint32 {
	t.Helper()
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer windows.CloseHandle(snap)

	var pids []uint32
	var e windows.ProcessEntry32
	e.Size = uint32(unsafe.Sizeof(e))
	for err = windows.Process32First(snap, &e); err == nil; err = windows.Process32Next(snap, &e) {
		if e.ParentProcessID == uint32(pid) {
			pids = append(pids, e.ProcessID)
		}
	}
	return pids
}

func exited(pid uint32, timeout time.Duration) bool {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE, false, pid)
	if err != nil {
		return true
	}
	defer windows.CloseHandle(h)
	ev, err := windows.WaitForSingleObject(h, uint32(timeout.Milliseconds()))
	return err == nil && ev == windows.WAIT_OBJECT_0
}

func TestExecLauncher_SignalKillsShellChildren(t *testing.T) {
	var out bytes.Buffer
	proc, err := ExecLauncher{}.Launch(lib.Command{Command: "ping", Args: []string{"-n", "30", "127.0.0.1"}, Shell: true}, &out, &out)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	waited := make(chan error, 1)
	go func() { waited <- proc.Wait() }()

	var children []uint32
	deadline := time.Now().Add(5 * time.Second)
	for len(children) == 0 && time.Now().Before(deadline) {
		children = childPIDs(t, proc.Pid())
		time.Sleep(20 * time.Millisecond)
	}
	if len(children) == 0 {
		t.Fatalf("cmd did not start its child")
	}

	if err := proc.Signal(false); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatalf("shell did not exit")
	}
	for _, pid := range children {
		if !exited(pid, 5*time.Second) {
			t.Fatalf("child %d survived the stop", pid)
		}
	}
}
