package supervisor

import (
	"io"
	"os/exec"

	"github.com/SanjoDeundiak/psi-desktop/pkg/lib"
)

// Process is a launched backend.
type Process interface {
	Pid() int
	// Wait blocks until the process exits. A non-nil error means a nonzero
	// exit or a signal; errors exposing ExitCode() report the code.
	Wait() error
	// Signal asks the process group to terminate, or kills it when kill is set.
	// It returns os.ErrProcessDone when nothing is left to signal.
	Signal(kill bool) error
}

// Launcher starts processes.
type Launcher interface {
	Launch(cmd lib.Command, stdout, stderr io.Writer) (Process, error)
}

// ExecLauncher starts real OS processes in their own process group. The
// shell used for Command.Shell is the one of the build platform.
type ExecLauncher struct{}

func (l ExecLauncher) Launch(c lib.Command, stdout, stderr io.Writer) (Process, error) {
	name, args := c.Command, c.Args
	if c.Shell {
		name, args = shellCommand(c.Command, c.Args)
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = c.Dir
	// Stdin is left nil, so the backend reads from the null device.
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, group: newProcessGroup(cmd.Process)}, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	group *processGroup
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	p.group.release()
	return err
}

func (p *execProcess) Signal(kill bool) error {
	return p.group.signal(kill)
}
