//go:build unix

package speech

import (
	"os/exec"
	"syscall"
)

func pauseProcess(cmd *exec.Cmd) bool {
	if cmd.Process == nil {
		return false
	}
	return cmd.Process.Signal(syscall.SIGSTOP) == nil
}

func resumeProcess(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Signal(syscall.SIGCONT)
	}
}
