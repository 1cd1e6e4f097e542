//go:build unix

package procsvc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configure starts the command in its own process group so signals reach
// every process it spawns.
func configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error { return signalGroup(p, syscall.SIGTERM) }
func suspend(p *os.Process) error   { return signalGroup(p, syscall.SIGSTOP) }
func resume(p *os.Process) error    { return signalGroup(p, syscall.SIGCONT) }
func kill(p *os.Process) error      { return signalGroup(p, syscall.SIGKILL) }

func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
