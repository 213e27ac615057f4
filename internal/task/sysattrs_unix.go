//go:build !windows

package task

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the child in a process group of its own, so a
// kill of -pid also reaches whatever the command forks (npm, go run, ...).
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
