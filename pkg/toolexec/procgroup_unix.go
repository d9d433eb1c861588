//go:build unix

package toolexec

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts the command as leader of its own process group so
// that signals also reach the helpers it forks.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to every process in p's group.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
