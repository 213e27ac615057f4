//go:build windows

package task

import "os/exec"

// configureStdio discards child output. Interleaving it with the
// supervisor's own console output garbles both on Windows.
// A nil Stdout/Stderr makes os/exec attach the null device.
func configureStdio(cmd *exec.Cmd) {
	cmd.Stdout = nil
	cmd.Stderr = nil
}
