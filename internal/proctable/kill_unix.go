//go:build !windows

package proctable

import (
	"context"
	"syscall"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// killTree sends SIGKILL to the whole group when p leads one, so children
// forked by p die with it. Anything else is killed by PID alone.
func killTree(ctx context.Context, p *gopsproc.Process) error {
	pid := int(p.Pid)
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid == pid {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err == nil {
			return nil
		}
	}
	return p.KillWithContext(ctx)
}
