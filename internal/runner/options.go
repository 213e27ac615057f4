package runner

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/loykin/graphdev/internal/history"
	"github.com/loykin/graphdev/internal/proctable"
	"github.com/loykin/graphdev/internal/prompt"
	"github.com/loykin/graphdev/internal/subgraph"
)

const (
	DefaultDiscoveryTimeout = 5 * time.Second
	DefaultPollInterval     = 100 * time.Millisecond
)

// EndpointScanner reports GraphQL endpoints served on this machine.
type EndpointScanner interface {
	LocalEndpoints(ctx context.Context) (subgraph.EndpointSet, error)
	GraphQLEndpointsExcept(ctx context.Context, known subgraph.EndpointSet) ([]subgraph.Endpoint, error)
}

// Resolver reports whether a binary can be found on PATH.
type Resolver interface {
	Resolve(binary string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(binary string) bool

func (f ResolverFunc) Resolve(binary string) bool { return f(binary) }

// Notifier tells the development session a subgraph is going away.
type Notifier interface {
	RemoveSubgraph(ctx context.Context, name subgraph.Name) error
}

// Chooser picks one endpoint out of several candidates.
type Chooser interface {
	SelectOne(ctx context.Context, candidates []subgraph.Endpoint) (int, error)
}

// ProcessTable is a point-in-time snapshot of the OS process table.
type ProcessTable interface {
	Refresh(ctx context.Context) error
	Lookup(pid int) (Process, bool)
}

// Process is a process found in a ProcessTable snapshot.
type Process interface {
	Kill(ctx context.Context) error
}

// Option configures a Runner built by New.
type Option func(*Runner)

// WithChooser sets who picks among several new endpoints. Default: a terminal prompt.
func WithChooser(c Chooser) Option { return func(r *Runner) { r.chooser = c } }

// WithResolver sets how executables are located. Default: exec.LookPath.
func WithResolver(res Resolver) Option { return func(r *Runner) { r.resolver = res } }

// WithProcessTable sets the process table KillTasks kills through.
func WithProcessTable(t ProcessTable) Option { return func(r *Runner) { r.procs = t } }

// WithLogger sets the logger; nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDiscoveryTimeout overrides DefaultDiscoveryTimeout. Non-positive values are ignored.
func WithDiscoveryTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.discoveryTimeout = d
		}
	}
}

// WithPollInterval overrides DefaultPollInterval. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithHistory appends sinks that receive spawn, discover and kill events.
func WithHistory(sinks ...history.Sink) Option {
	return func(r *Runner) {
		for _, s := range sinks {
			if s != nil {
				r.sinks = append(r.sinks, s)
			}
		}
	}
}

// WithSessionID tags history events. A random id is used otherwise.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.session = id
		}
	}
}

// WithNotifyErrorHandler replaces the default warning log for removal
// notices the session did not accept.
func WithNotifyErrorHandler(h func(name subgraph.Name, err error)) Option {
	return func(r *Runner) { r.onNotifyErr = h }
}

// TaskOption adjusts how a single task is launched.
type TaskOption func(*taskConfig)

type taskConfig struct {
	dir string
	env []string
}

// InDir runs the task in dir.
func InDir(dir string) TaskOption { return func(c *taskConfig) { c.dir = dir } }

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(kvs ...string) TaskOption {
	return func(c *taskConfig) { c.env = append(c.env, kvs...) }
}

type pathResolver struct{}

func (pathResolver) Resolve(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// systemTable adapts proctable.Table to ProcessTable.
type systemTable struct{ t *proctable.Table }

func (s systemTable) Refresh(ctx context.Context) error { return s.t.Refresh(ctx) }

func (s systemTable) Lookup(pid int) (Process, bool) {
	p, ok := s.t.Lookup(pid)
	if !ok {
		return nil, false
	}
	return p, true
}

// SystemProcessTable returns the gopsutil-backed process table.
func SystemProcessTable() ProcessTable { return systemTable{t: proctable.New()} }

func defaultChooser() Chooser { return prompt.New(os.Stdin, os.Stdout) }
