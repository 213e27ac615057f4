// Package session tracks the subgraphs of one development session and
// serves them over a local unix socket.
//
// Endpoints:
//
//	GET    /health
//	GET    /subgraphs
//	PUT    /subgraphs/:name   body: {"url": "..."}
//	DELETE /subgraphs/:name
package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/graphdev/internal/subgraph"
)

// Entry is one subgraph known to the session.
type Entry struct {
	Name      subgraph.Name     `json:"name"`
	URL       subgraph.Endpoint `json:"url"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Session holds the subgraph table and its HTTP surface.
type Session struct {
	mu      sync.RWMutex
	entries map[subgraph.Name]Entry
	logger  *slog.Logger
	srv     *http.Server
	closed  bool
}

func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{entries: make(map[subgraph.Name]Entry), logger: logger}
}

// Put adds or replaces a subgraph.
func (s *Session) Put(name subgraph.Name, url subgraph.Endpoint) {
	s.mu.Lock()
	s.entries[name] = Entry{Name: name, URL: url, UpdatedAt: time.Now().UTC()}
	s.mu.Unlock()
	s.logger.Info("subgraph added", "subgraph", name.String(), "url", url.String())
}

// Remove drops a subgraph and reports whether it was present.
func (s *Session) Remove(name subgraph.Name) bool {
	s.mu.Lock()
	_, ok := s.entries[name]
	delete(s.entries, name)
	s.mu.Unlock()
	if ok {
		s.logger.Info("subgraph removed", "subgraph", name.String())
	}
	return ok
}

// List returns the subgraphs sorted by name.
func (s *Session) List() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Handler returns the gin engine serving the session API.
func (s *Session) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/health", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	g.GET("/subgraphs", s.handleList)
	g.PUT("/subgraphs/:name", s.handlePut)
	g.DELETE("/subgraphs/:name", s.handleDelete)
	return g
}

// Listen opens the unix socket at path, replacing a stale socket file.
func Listen(path string) (net.Listener, error) {
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
		_ = os.Remove(path)
	}
	return net.Listen("unix", path)
}

// Serve blocks serving the API on ln until Shutdown is called.
func (s *Session) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server. A Serve that has not started yet returns at once.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type putReq struct {
	URL string `json:"url"`
}

func (s *Session) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.List())
}

func (s *Session) handlePut(c *gin.Context) {
	name := c.Param("name")
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid subgraph name: allowed [A-Za-z0-9._-]"})
		return
	}
	var req putReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	url, err := subgraph.ParseEndpoint(req.URL)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	s.Put(subgraph.Name(name), url)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (s *Session) handleDelete(c *gin.Context) {
	name := c.Param("name")
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid subgraph name: allowed [A-Za-z0-9._-]"})
		return
	}
	if !s.Remove(subgraph.Name(name)) {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown subgraph: " + name})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
