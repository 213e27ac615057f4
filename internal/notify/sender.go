// Package notify sends subgraph lifecycle notices to the session that owns
// the unix socket.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/loykin/graphdev/internal/subgraph"
)

// DefaultTimeout bounds a single notice.
const DefaultTimeout = 2 * time.Second

// the host part is ignored; every request goes over the socket
const baseURL = "http://session"

// Sender talks to a session over its unix socket.
type Sender struct {
	socket string
	client *http.Client
	logger *slog.Logger
}

type Option func(*Sender)

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option { return func(s *Sender) { s.logger = l } }

// NewSender returns a Sender for the session listening on socketPath.
func NewSender(socketPath string, opts ...Option) *Sender {
	dialer := &net.Dialer{Timeout: DefaultTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	s := &Sender{
		socket: socketPath,
		client: &http.Client{Timeout: DefaultTimeout, Transport: transport},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Sender) Socket() string { return s.socket }

// Ping reports whether a session answers on the socket.
func (s *Sender) Ping(ctx context.Context) bool {
	err := s.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		s.logger.Debug("session unreachable", "socket", s.socket, "error", err)
		return false
	}
	return true
}

// AddSubgraph announces that name is served at endpoint.
func (s *Sender) AddSubgraph(ctx context.Context, name subgraph.Name, endpoint subgraph.Endpoint) error {
	body := map[string]string{"url": endpoint.String()}
	if err := s.do(ctx, http.MethodPut, subgraphPath(name), body, nil); err != nil {
		return fmt.Errorf("add subgraph %s: %w", name, err)
	}
	return nil
}

// RemoveSubgraph announces that name is going away.
func (s *Sender) RemoveSubgraph(ctx context.Context, name subgraph.Name) error {
	if err := s.do(ctx, http.MethodDelete, subgraphPath(name), nil, nil); err != nil {
		return fmt.Errorf("remove subgraph %s: %w", name, err)
	}
	return nil
}

// Subgraph mirrors the session's view of one subgraph.
type Subgraph struct {
	Name      subgraph.Name     `json:"name"`
	URL       subgraph.Endpoint `json:"url"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// List returns the subgraphs the session knows about.
func (s *Sender) List(ctx context.Context) ([]Subgraph, error) {
	var out []Subgraph
	if err := s.do(ctx, http.MethodGet, "/subgraphs", nil, &out); err != nil {
		return nil, fmt.Errorf("list subgraphs: %w", err)
	}
	return out, nil
}

func subgraphPath(name subgraph.Name) string {
	return "/subgraphs/" + url.PathEscape(name.String())
}

func (s *Sender) do(ctx context.Context, method, path string, in, out any) error {
	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, rdr)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("session returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("session returned %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
