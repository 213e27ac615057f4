// Package netstat finds endpoints bound on this host and tells which of them
// speak GraphQL.
package netstat

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"golang.org/x/sync/errgroup"

	"github.com/loykin/graphdev/internal/subgraph"
)

// Defaults for the scanner.
const (
	DefaultProbeTimeout = 500 * time.Millisecond
	DefaultParallelism  = 8
)

// DefaultProbePaths lists where a GraphQL server is commonly mounted, in
// order of preference.
var DefaultProbePaths = []string{"/graphql", "/query", "/"}

// ListenersFunc returns the TCP ports currently in LISTEN state on a local
// (loopback or unspecified) address.
type ListenersFunc func(ctx context.Context) ([]uint32, error)

// Scanner enumerates local endpoints and probes them for GraphQL.
type Scanner struct {
	client      *http.Client
	paths       []string
	parallelism int
	listeners   ListenersFunc
	logger      *slog.Logger
}

type Option func(*Scanner)

func WithHTTPClient(c *http.Client) Option { return func(s *Scanner) { s.client = c } }

func WithProbePaths(paths ...string) Option {
	return func(s *Scanner) {
		if len(paths) > 0 {
			s.paths = append([]string(nil), paths...)
		}
	}
}

func WithParallelism(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

func WithListeners(f ListenersFunc) Option { return func(s *Scanner) { s.listeners = f } }

func WithLogger(l *slog.Logger) Option { return func(s *Scanner) { s.logger = l } }

func New(opts ...Option) *Scanner {
	s := &Scanner{
		client:      &http.Client{Timeout: DefaultProbeTimeout},
		paths:       DefaultProbePaths,
		parallelism: DefaultParallelism,
		listeners:   SystemListeners,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LocalEndpoints returns every candidate endpoint of every listening port,
// whether or not it answers GraphQL.
func (s *Scanner) LocalEndpoints(ctx context.Context) (subgraph.EndpointSet, error) {
	ports, err := s.listeners(ctx)
	if err != nil {
		return nil, err
	}
	out := make(subgraph.EndpointSet, len(ports)*len(s.paths))
	for _, p := range ports {
		for _, path := range s.paths {
			out.Add(subgraph.Local(p, path))
		}
	}
	return out, nil
}

// GraphQLEndpointsExcept probes the candidates not present in known and
// returns those answering a GraphQL query, at most one per port, in the
// order the listeners were reported.
func (s *Scanner) GraphQLEndpointsExcept(ctx context.Context, known subgraph.EndpointSet) ([]subgraph.Endpoint, error) {
	ports, err := s.listeners(ctx)
	if err != nil {
		return nil, err
	}
	type candidate struct{ eps []subgraph.Endpoint }
	cands := make([]candidate, 0, len(ports))
	for _, p := range ports {
		var c candidate
		for _, path := range s.paths {
			if e := subgraph.Local(p, path); !known.Has(e) {
				c.eps = append(c.eps, e)
			}
		}
		if len(c.eps) > 0 {
			cands = append(cands, c)
		}
	}

	found := make([]subgraph.Endpoint, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			for _, e := range c.eps {
				if s.isGraphQL(gctx, e) {
					found[i] = e
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]subgraph.Endpoint, 0, len(found))
	for _, e := range found {
		if e != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// SystemListeners reads the host socket table.
func SystemListeners(ctx context.Context) ([]uint32, error) {
	conns, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("list sockets: %w", err)
	}
	seen := make(map[uint32]struct{})
	ports := make([]uint32, 0)
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port == 0 || !isLocal(c.Laddr.IP) {
			continue
		}
		if _, ok := seen[c.Laddr.Port]; ok {
			continue
		}
		seen[c.Laddr.Port] = struct{}{}
		ports = append(ports, c.Laddr.Port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports, nil
}

// isLocal reports whether a service bound on ip is reachable via localhost.
func isLocal(ip string) bool {
	if ip == "" || ip == "*" {
		return true
	}
	a := net.ParseIP(ip)
	if a == nil {
		return false
	}
	return a.IsLoopback() || a.IsUnspecified()
}
