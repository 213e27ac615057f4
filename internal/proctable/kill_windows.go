//go:build windows

package proctable

import (
	"context"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// killTree kills the descendants of p first, then p itself.
func killTree(ctx context.Context, p *gopsproc.Process) error {
	if children, err := p.ChildrenWithContext(ctx); err == nil {
		for _, c := range children {
			_ = killTree(ctx, c)
		}
	}
	return p.KillWithContext(ctx)
}
