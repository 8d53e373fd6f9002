//go:build !unix

package speech

import "os/exec"

// Processes cannot be suspended portably; Pause is a no-op here.
func pauseProcess(cmd *exec.Cmd) bool { return false }

func resumeProcess(cmd *exec.Cmd) {}
