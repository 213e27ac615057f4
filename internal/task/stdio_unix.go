//go:build !windows

package task

import (
	"os"
	"os/exec"
)

// configureStdio lets the child share the supervisor's terminal.
func configureStdio(cmd *exec.Cmd) {
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
}
