//go:build !windows

package supervisor

import (
	"errors"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr() *syscall.SysProcAttr {
	// New process group so the shell and the interpreter it forks stop together.
	return &syscall.SysProcAttr{Setpgid: true}
}

// processGroup is the group led by the launched process.
type processGroup struct {
	pid int
}

func newProcessGroup(p *os.Process) *processGroup {
	return &processGroup{pid: p.Pid}
}

func (g *processGroup) signal(kill bool) error {
	sig := unix.SIGTERM
	if kill {
		sig = unix.SIGKILL
	}
	// Negative pid addresses the whole process group.
	err := unix.Kill(-g.pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func (g *processGroup) release() {}

func shellCommand(command string, args []string) (string, []string) {
	line := strings.Join(append([]string{command}, args...), " ")
	return "/bin/sh", []string{"-c", line}
}
