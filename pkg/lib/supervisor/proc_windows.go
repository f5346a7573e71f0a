//go:build windows

package supervisor

import (
	"os"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// processGroup is a job object holding the launched process and everything
// it spawns. Closing the job kills whatever is still inside it.
type processGroup struct {
	p *os.Process

	mu  sync.Mutex
	job windows.Handle
}

// newProcessGroup puts p into a fresh job object. Without a job only p
// itself can be killed.
func newProcessGroup(p *os.Process) *processGroup {
	g := &processGroup{p: p}
	job, err := createKillOnCloseJob()
	if err != nil {
		return g
	}
	if err := assignToJob(job, p.Pid); err != nil {
		_ = windows.CloseHandle(job)
		return g
	}
	g.job = job
	return g
}

func createKillOnCloseJob() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info))); err != nil {
		_ = windows.CloseHandle(job)
		return 0, err
	}
	return job, nil
}

func assignToJob(job windows.Handle, pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)
	return windows.AssignProcessToJobObject(job, h)
}

// signal terminates the whole job. Windows has no graceful group signal for
// console-less children, so kill is implied.
func (g *processGroup) signal(kill bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.job == 0 {
		return g.p.Kill()
	}
	return windows.TerminateJobObject(g.job, 1)
}

// release closes the job once the launched process has exited, taking any
// child it left behind with it.
func (g *processGroup) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.job != 0 {
		_ = windows.CloseHandle(g.job)
		g.job = 0
	}
}

func shellCommand(command string, args []string) (string, []string) {
	line := strings.Join(append([]string{command}, args...), " ")
	return "cmd", []string{"/C", line}
}
