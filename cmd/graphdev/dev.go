package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/graphdev/internal/config"
	"github.com/loykin/graphdev/internal/history"
	"github.com/loykin/graphdev/internal/logger"
	"github.com/loykin/graphdev/internal/metrics"
	"github.com/loykin/graphdev/internal/netstat"
	"github.com/loykin/graphdev/internal/notify"
	"github.com/loykin/graphdev/internal/runner"
	"github.com/loykin/graphdev/internal/session"
	"github.com/loykin/graphdev/internal/subgraph"
)

func createDevCommand(globalFlags *GlobalFlags, devFlags *DevFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start subgraphs and keep them running until interrupted",
		Long: `Start every configured subgraph, discover the GraphQL endpoint of those
without a url and announce them to the development session. If no session
listens on the socket yet, this process hosts one.

Examples:
  graphdev dev --config graphdev.toml
  graphdev dev --name products --command "npm run start"
  graphdev dev --name reviews --command "go run ./reviews" --url http://localhost:4002/graphql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDev(ctx, *globalFlags, *devFlags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&devFlags.Name, "name", "", "subgraph name")
	cmd.Flags().StringVar(&devFlags.Command, "command", "", "command that starts the subgraph")
	cmd.Flags().StringVar(&devFlags.URL, "url", "", "subgraph endpoint; discovered when empty")
	cmd.Flags().StringVar(&devFlags.WorkDir, "workdir", "", "working directory of the command")
	cmd.Flags().StringSliceVar(&devFlags.Env, "env", nil, "extra KEY=VALUE for the command (repeatable)")
	cmd.Flags().StringVar(&devFlags.MetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&devFlags.LogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	return cmd
}

// loadDevConfig merges the config file with command-line overrides.
func loadDevConfig(gf GlobalFlags, df DevFlags) (*config.Config, error) {
	cfg, err := config.Load(gf.ConfigPath)
	if err != nil {
		return nil, err
	}
	if gf.Socket != "" {
		cfg.Socket = gf.Socket
	}
	if df.MetricsListen != "" {
		cfg.Metrics.Listen = df.MetricsListen
	}
	if df.LogLevel != "" {
		cfg.Log.Level = df.LogLevel
	}
	if df.Name != "" || df.Command != "" {
		cfg.AddSubgraph(config.SubgraphConfig{
			Name:    df.Name,
			Command: df.Command,
			URL:     df.URL,
			WorkDir: df.WorkDir,
			Env:     df.Env,
		})
	}
	if len(cfg.Subgraphs) == 0 {
		return nil, errors.New("no subgraphs to run: pass --name and --command or add [[subgraphs]] to the config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDev(ctx context.Context, gf GlobalFlags, df DevFlags, out io.Writer) error {
	cfg, err := loadDevConfig(gf, df)
	if err != nil {
		return err
	}
	lg, logCloser, err := logger.New(cfg.Log.LoggerConfig())
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	sessionID := uuid.NewString()
	ropts := []runner.Option{
		runner.WithLogger(lg),
		runner.WithDiscoveryTimeout(cfg.Discovery.Timeout),
		runner.WithPollInterval(cfg.Discovery.PollInterval),
		runner.WithSessionID(sessionID),
	}

	if cfg.Metrics.Listen != "" {
		stopMetrics, err := serveMetrics(cfg.Metrics.Listen, lg)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}
	if cfg.History.DSN != "" {
		sink, err := history.NewSQLSink(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { _ = sink.Close() }()
		ropts = append(ropts, runner.WithHistory(sink))
	}

	sender := notify.NewSender(cfg.Socket, notify.WithLogger(lg))
	stopSession, err := ensureSession(ctx, sender, lg)
	if err != nil {
		return err
	}
	defer stopSession()

	scanner := netstat.New(
		netstat.WithHTTPClient(&http.Client{Timeout: cfg.Discovery.ProbeTimeout}),
		netstat.WithProbePaths(cfg.Discovery.ProbePaths...),
		netstat.WithLogger(lg),
	)

	err = runner.Run(ctx, sender, func(ctx context.Context, r *runner.Runner) error {
		if err := startSubgraphs(ctx, cfg, r, sender, scanner, out); err != nil {
			return err
		}
		lg.Info("all subgraphs running, press Ctrl+C to stop", "count", r.Len(), "session", sessionID)
		<-ctx.Done()
		lg.Info("shutting down")
		return nil
	}, ropts...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ensureSession joins the session answering on the socket or hosts a new one.
// The returned func stops a hosted session.
func ensureSession(ctx context.Context, sender *notify.Sender, lg *slog.Logger) (func(), error) {
	if sender.Ping(ctx) {
		lg.Info("joining development session", "socket", sender.Socket())
		return func() {}, nil
	}
	ln, err := session.Listen(sender.Socket())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", sender.Socket(), err)
	}
	sess := session.New(lg)
	go func() {
		if err := sess.Serve(ln); err != nil {
			lg.Error("development session stopped", "error", err)
		}
	}()
	lg.Info("started development session", "socket", sender.Socket())
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sess.Shutdown(sctx)
		_ = os.Remove(sender.Socket())
	}, nil
}

func serveMetrics(addr string, lg *slog.Logger) (func(), error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	srv := metrics.NewServer(addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	lg.Info("serving metrics", "addr", addr)
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

// sessionAnnouncer is the part of notify.Sender startSubgraphs needs.
type sessionAnnouncer interface {
	AddSubgraph(ctx context.Context, name subgraph.Name, endpoint subgraph.Endpoint) error
	List(ctx context.Context) ([]notify.Subgraph, error)
}

// startSubgraphs spawns each configured subgraph in order and announces its
// endpoint. Endpoints claimed by configuration or by the session are never
// taken as a discovery result.
func startSubgraphs(ctx context.Context, cfg *config.Config, r *runner.Runner, ann sessionAnnouncer, scanner runner.EndpointScanner, out io.Writer) error {
	var known []subgraph.Endpoint
	for _, sc := range cfg.Subgraphs {
		if ep, err := sc.Endpoint(); err == nil && ep != "" {
			known = append(known, ep)
		}
	}
	if existing, err := ann.List(ctx); err == nil {
		for _, sg := range existing {
			known = append(known, sg.URL)
		}
	}

	for _, sc := range cfg.Subgraphs {
		name := subgraph.Name(sc.Name)
		env, err := cfg.SubgraphEnv(sc)
		if err != nil {
			return fmt.Errorf("subgraph %s: %w", name, err)
		}
		topts := []runner.TaskOption{runner.WithEnv(env...)}
		if sc.WorkDir != "" {
			topts = append(topts, runner.InDir(sc.WorkDir))
		}

		ep, err := sc.Endpoint()
		if err != nil {
			return fmt.Errorf("subgraph %s: %w", name, err)
		}
		if ep != "" {
			err = r.Spawn(ctx, name, sc.Command, topts...)
		} else {
			ep, err = r.SpawnAndDiscover(ctx, name, sc.Command, scanner, known, topts...)
			if err == nil {
				known = append(known, ep)
			}
		}
		if err != nil {
			return err
		}
		if err := ann.AddSubgraph(ctx, name, ep); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "subgraph %s is running at %s\n", name, ep)
	}
	return nil
}
