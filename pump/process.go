package pump

import (
	"os/exec"

	"github.com/Barba02/TALight/errs"
	"github.com/creack/pty"
)

// RunProcess bridges conn with a child process's stdio. cmd must not have
// been started: the pipes have to exist before the process does. Whatever way
// the session ends, the child is killed and reaped, both best-effort.
func RunProcess(conn MessageConn, ctrl Control, cmd *exec.Cmd, opts Options) error {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errs.WithStack(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errs.WithStack(err)
	}
	if err := cmd.Start(); err != nil {
		return errs.WithStack(err)
	}

	runErr := Run(conn, ctrl, Endpoint{Reader: stdout, Writer: stdin}, opts)

	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return runErr
}

// RunProcessPTY is RunProcess with the child on a pseudo-terminal, so
// line-buffered programs behave as if a human were attached.
func RunProcessPTY(conn MessageConn, ctrl Control, cmd *exec.Cmd, opts Options) error {
	tty, err := pty.Start(cmd)
	if err != nil {
		return errs.WithStack(err)
	}

	runErr := Run(conn, ctrl, Endpoint{Reader: tty, Writer: tty}, opts)

	_ = tty.Close()
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return runErr
}
