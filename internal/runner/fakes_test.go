package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/loykin/graphdev/internal/subgraph"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses the unix sleep binary")
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeNotifier struct {
	mu      sync.Mutex
	removed []subgraph.Name
	err     error
}

func (n *fakeNotifier) RemoveSubgraph(_ context.Context, name subgraph.Name) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, name)
	return n.err
}

func (n *fakeNotifier) calls() []subgraph.Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]subgraph.Name(nil), n.removed...)
}

// fakeTable answers lookups for any pid unless listed in missing. Kill
// really signals the process so nothing outlives the test.
type fakeTable struct {
	refreshes  int
	refreshErr error
	missing    map[int]bool
	killErr    error
	killed     []int
}

func (f *fakeTable) Refresh(context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeTable) Lookup(pid int) (Process, bool) {
	if f.missing[pid] {
		return nil, false
	}
	return &fakeProcess{pid: pid, table: f}, true
}

type fakeProcess struct {
	pid   int
	table *fakeTable
}

func (p *fakeProcess) Kill(context.Context) error {
	p.table.killed = append(p.table.killed, p.pid)
	killPID(p.pid)
	return p.table.killErr
}

func killPID(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Kill()
	}
}

// fakeScanner returns the queued results one per poll, then repeats the
// last one.
type fakeScanner struct {
	local      subgraph.EndpointSet
	localErr   error
	localCalls int
	results    [][]subgraph.Endpoint
	pollErr    error
	polls      int
	lastKnown  subgraph.EndpointSet
}

func (s *fakeScanner) LocalEndpoints(context.Context) (subgraph.EndpointSet, error) {
	s.localCalls++
	if s.localErr != nil {
		return nil, s.localErr
	}
	return s.local, nil
}

func (s *fakeScanner) GraphQLEndpointsExcept(_ context.Context, known subgraph.EndpointSet) ([]subgraph.Endpoint, error) {
	s.polls++
	s.lastKnown = known
	if s.pollErr != nil {
		return nil, s.pollErr
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	i := s.polls - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], nil
}

// fakeChooser returns the queued answers in order, then the last one.
type fakeChooser struct {
	answers []choice
	calls   int
}

type choice struct {
	idx int
	err error
}

var errNoTTY = errors.New("not a terminal")

func (c *fakeChooser) SelectOne(context.Context, []subgraph.Endpoint) (int, error) {
	c.calls++
	if len(c.answers) == 0 {
		return 0, errNoTTY
	}
	i := c.calls - 1
	if i >= len(c.answers) {
		i = len(c.answers) - 1
	}
	return c.answers[i].idx, c.answers[i].err
}

func alwaysResolve(string) bool { return true }
