package graphdev

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/graphdev/internal/config"
	"github.com/loykin/graphdev/internal/history"
	"github.com/loykin/graphdev/internal/metrics"
	"github.com/loykin/graphdev/internal/netstat"
	"github.com/loykin/graphdev/internal/notify"
	"github.com/loykin/graphdev/internal/runner"
	"github.com/loykin/graphdev/internal/subgraph"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Runner = runner.Runner

type Option = runner.Option

type TaskOption = runner.TaskOption

type Error = runner.Error

type Kind = runner.Kind

type Name = subgraph.Name

type Endpoint = subgraph.Endpoint

type Config = cfg.Config

type HistorySink = history.Sink

type Scanner = netstat.Scanner

type Sender = notify.Sender

const (
	KindDuplicateTask      = runner.KindDuplicateTask
	KindEmptyCommand       = runner.KindEmptyCommand
	KindExecutableNotFound = runner.KindExecutableNotFound
	KindSpawnFailure       = runner.KindSpawnFailure
	KindDiscoveryTimeout   = runner.KindDiscoveryTimeout
)

var (
	ErrDuplicateTask      = runner.ErrDuplicateTask
	ErrEmptyCommand       = runner.ErrEmptyCommand
	ErrExecutableNotFound = runner.ErrExecutableNotFound
	ErrSpawnFailure       = runner.ErrSpawnFailure
	ErrDiscoveryTimeout   = runner.ErrDiscoveryTimeout
)

// Runner options.
var (
	WithChooser          = runner.WithChooser
	WithResolver         = runner.WithResolver
	WithProcessTable     = runner.WithProcessTable
	WithLogger           = runner.WithLogger
	WithDiscoveryTimeout = runner.WithDiscoveryTimeout
	WithPollInterval     = runner.WithPollInterval
	WithHistory          = runner.WithHistory
	WithSessionID        = runner.WithSessionID
	InDir                = runner.InDir
	WithEnv              = runner.WithEnv
)

// NewRunner returns a Runner that reports removals to notifier (may be nil).
func NewRunner(notifier runner.Notifier, opts ...Option) *Runner { return runner.New(notifier, opts...) }

// Run creates a Runner, calls fn and always tears every task down afterwards.
func Run(ctx context.Context, notifier runner.Notifier, fn func(ctx context.Context, r *Runner) error, opts ...Option) error {
	return runner.Run(ctx, notifier, fn, opts...)
}

// KindOf returns the Kind carried by err, if any.
func KindOf(err error) Kind { return runner.KindOf(err) }

// NewScanner returns the local GraphQL endpoint scanner.
func NewScanner(opts ...netstat.Option) *Scanner { return netstat.New(opts...) }

// NewSender returns a client for the development session on socketPath.
func NewSender(socketPath string, opts ...notify.Option) *Sender {
	return notify.NewSender(socketPath, opts...)
}

// NewSQLHistory opens a sqlite or postgres history sink chosen by dsn.
func NewSQLHistory(dsn string) (*history.SQLSink, error) { return history.NewSQLSink(dsn) }

// ParseEndpoint validates and normalises an endpoint URL.
func ParseEndpoint(raw string) (Endpoint, error) { return subgraph.ParseEndpoint(raw) }

// LoadConfig reads a TOML config file; an empty path yields defaults.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
