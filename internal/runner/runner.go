package runner

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/graphdev/internal/history"
	"github.com/loykin/graphdev/internal/metrics"
	"github.com/loykin/graphdev/internal/subgraph"
	"github.com/loykin/graphdev/internal/task"
)

// Runner starts subgraph processes in the background and tears all of them
// down together.
//
// A Runner has a single owner and is not safe for concurrent use.
type Runner struct {
	tasks map[subgraph.Name]*task.Task

	notifier    Notifier
	chooser     Chooser
	resolver    Resolver
	procs       ProcessTable
	logger      *slog.Logger
	sinks       []history.Sink
	session     string
	onNotifyErr func(subgraph.Name, error)

	discoveryTimeout time.Duration
	pollInterval     time.Duration
}

// New returns a Runner with an empty registry. notifier may be nil when no
// session needs to hear about removals.
func New(notifier Notifier, opts ...Option) *Runner {
	r := &Runner{
		tasks:            make(map[subgraph.Name]*task.Task),
		notifier:         notifier,
		logger:           slog.Default(),
		discoveryTimeout: DefaultDiscoveryTimeout,
		pollInterval:     DefaultPollInterval,
	}
	for _, o := range opts {
		o(r)
	}
	if r.resolver == nil {
		r.resolver = pathResolver{}
	}
	if r.procs == nil {
		r.procs = SystemProcessTable()
	}
	if r.chooser == nil {
		r.chooser = defaultChooser()
	}
	if r.session == "" {
		r.session = uuid.NewString()
	}
	return r
}

// Run creates a Runner, passes it to fn and tears every task down when fn
// returns or panics. A panic is re-raised once teardown has finished.
func Run(ctx context.Context, notifier Notifier, fn func(ctx context.Context, r *Runner) error, opts ...Option) error {
	r := New(notifier, opts...)
	defer func() { _ = r.Close() }()
	return fn(ctx, r)
}

// Spawn starts commandLine in the background and registers it under name.
func (r *Runner) Spawn(ctx context.Context, name subgraph.Name, commandLine string, topts ...TaskOption) error {
	_, err := r.spawn(ctx, name, commandLine, topts)
	return err
}

func (r *Runner) spawn(ctx context.Context, name subgraph.Name, commandLine string, topts []TaskOption) (*task.Task, error) {
	t, err := r.start(name, commandLine, topts)
	if err != nil {
		metrics.IncSpawn(metrics.SpawnFailed)
		return nil, err
	}
	r.tasks[name] = t
	metrics.IncSpawn(metrics.SpawnOK)
	metrics.SetTrackedTasks(len(r.tasks))
	r.logger.Info("spawning background task", "subgraph", name, "command", t.Spec().String(), "pid", t.PID())
	r.record(ctx, history.Event{Type: history.EventSpawn, Subgraph: name, PID: t.PID(), Command: t.Spec().String()})
	return t, nil
}

func (r *Runner) start(name subgraph.Name, commandLine string, topts []TaskOption) (*task.Task, error) {
	if _, exists := r.tasks[name]; exists {
		return nil, &Error{Kind: KindDuplicateTask, Subgraph: name}
	}
	bin, args, ok := task.ParseCommandLine(commandLine)
	if !ok {
		return nil, &Error{Kind: KindEmptyCommand}
	}
	if !r.resolver.Resolve(bin) {
		return nil, &Error{Kind: KindExecutableNotFound, Binary: bin}
	}
	var tc taskConfig
	for _, o := range topts {
		o(&tc)
	}
	t, err := task.Start(task.Spec{Path: bin, Args: args, Dir: tc.dir, Env: tc.env})
	if err != nil {
		return nil, &Error{Kind: KindSpawnFailure, Subgraph: name, Err: err}
	}
	return t, nil
}

// KillTasks notifies the session about every task and kills its process.
// Failures are logged as warnings and never stop the pass. The registry is
// empty afterwards, so calling it again does nothing.
func (r *Runner) KillTasks(ctx context.Context) {
	if len(r.tasks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.procs.Refresh(ctx); err != nil {
		r.logger.Warn("could not read process table", "error", err)
	}
	for _, name := range r.Names() {
		t := r.tasks[name]
		r.notifyRemoval(ctx, name)

		pid := t.PID()
		p, ok := r.procs.Lookup(pid)
		switch {
		case !ok:
			metrics.IncKill(metrics.KillMissing)
			r.logger.Warn("could not find process", "subgraph", name, "pid", pid)
		default:
			if err := p.Kill(ctx); err != nil {
				metrics.IncKill(metrics.KillFailed)
				r.logger.Warn("could not kill process", "subgraph", name, "pid", pid, "error", err)
			} else {
				metrics.IncKill(metrics.KillKilled)
				r.logger.Debug("killed process", "subgraph", name, "pid", pid)
			}
		}
		r.record(ctx, history.Event{Type: history.EventKill, Subgraph: name, PID: pid, Command: t.Spec().String()})
	}
	r.tasks = make(map[subgraph.Name]*task.Task)
	metrics.SetTrackedTasks(0)
}

func (r *Runner) notifyRemoval(ctx context.Context, name subgraph.Name) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.RemoveSubgraph(ctx, name); err != nil {
		metrics.IncNotifyFailure()
		if r.onNotifyErr != nil {
			r.onNotifyErr(name, err)
			return
		}
		r.logger.Warn("could not remove subgraph from session", "subgraph", name, "error", err)
	}
}

// Close kills every remaining task. It is safe to call more than once.
func (r *Runner) Close() error {
	r.KillTasks(context.Background())
	return nil
}

// Names returns the registered subgraph names in sorted order.
func (r *Runner) Names() []subgraph.Name {
	out := make([]subgraph.Name, 0, len(r.tasks))
	for n := range r.tasks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PID returns the process id of the task registered under name.
func (r *Runner) PID(name subgraph.Name) (int, bool) {
	t, ok := r.tasks[name]
	if !ok {
		return 0, false
	}
	return t.PID(), true
}

func (r *Runner) Len() int { return len(r.tasks) }

// Session is the id attached to history events.
func (r *Runner) Session() string { return r.session }

func (r *Runner) record(ctx context.Context, e history.Event) {
	if len(r.sinks) == 0 {
		return
	}
	e.Session = r.session
	e.OccurredAt = time.Now().UTC()
	for _, s := range r.sinks {
		if err := s.Send(ctx, e); err != nil {
			r.logger.Debug("history sink send failed", "type", e.Type, "error", err)
		}
	}
}
