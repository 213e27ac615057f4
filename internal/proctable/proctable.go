// Package proctable keeps a point-in-time view of the host process table.
//
// Querying every process is comparatively expensive, so callers refresh once
// and then look up as many PIDs as they need against the same snapshot.
package proctable

import (
	"context"
	"fmt"
	"sync"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Table is a cached snapshot of running processes, keyed by PID.
type Table struct {
	mu          sync.RWMutex
	procs       map[int32]*gopsproc.Process
	refreshedAt time.Time
}

func New() *Table { return &Table{procs: map[int32]*gopsproc.Process{}} }

// Refresh replaces the snapshot with the current process list.
func (t *Table) Refresh(ctx context.Context) error {
	ps, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}
	m := make(map[int32]*gopsproc.Process, len(ps))
	for _, p := range ps {
		m[p.Pid] = p
	}
	t.mu.Lock()
	t.procs = m
	t.refreshedAt = time.Now()
	t.mu.Unlock()
	return nil
}

// RefreshedAt reports when the snapshot was last taken; zero if never.
func (t *Table) RefreshedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refreshedAt
}

// Len returns the number of processes in the snapshot.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.procs)
}

// Lookup finds pid in the snapshot. It never queries the OS.
func (t *Table) Lookup(pid int) (*Process, bool) {
	t.mu.RLock()
	p, ok := t.procs[int32(pid)]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &Process{p: p}, true
}

// Process is one entry of a snapshot.
type Process struct{ p *gopsproc.Process }

func (p *Process) PID() int { return int(p.p.Pid) }

// Name returns the executable name, or "" when it cannot be read.
func (p *Process) Name(ctx context.Context) string {
	n, err := p.p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return n
}

// Kill terminates the process immediately (SIGKILL on Unix) together with
// the processes it started.
func (p *Process) Kill(ctx context.Context) error {
	return killTree(ctx, p.p)
}
