package subgraph

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// Name identifies a subgraph within a development session.
type Name string

func (n Name) String() string { return string(n) }

// Endpoint is a fully-qualified URL a local service answers on.
// Endpoints are compared by value, so they must be built with ParseEndpoint
// (or Local) to get a canonical form.
type Endpoint string

func (e Endpoint) String() string { return string(e) }

// URL parses the endpoint. Endpoints built by this package always parse.
func (e Endpoint) URL() *url.URL {
	u, _ := url.Parse(string(e))
	return u
}

// Port returns the port component, or "" when none is present.
func (e Endpoint) Port() string {
	if u := e.URL(); u != nil {
		return u.Port()
	}
	return ""
}

var errEmptyEndpoint = errors.New("empty endpoint")

// ParseEndpoint validates raw and returns its canonical form: lower-case
// scheme and host, no fragment, an empty path normalised to "/".
// Loopback hosts (127.0.0.0/8, ::1) are spelled "localhost", the way Local
// builds endpoints, so a known endpoint matches its scan result.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyEndpoint
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", raw)
	}
	u.Host = strings.ToLower(u.Host)
	if isLoopback(u.Hostname()) {
		u.Host = "localhost"
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(u.Host, port)
		}
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return Endpoint(u.String()), nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Local builds the endpoint for a service bound on this host.
func Local(port uint32, path string) Endpoint {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Endpoint(fmt.Sprintf("http://localhost:%d%s", port, path))
}

// EndpointSet is an unordered set of endpoints.
type EndpointSet map[Endpoint]struct{}

func NewEndpointSet(eps ...Endpoint) EndpointSet {
	s := make(EndpointSet, len(eps))
	for _, e := range eps {
		s[e] = struct{}{}
	}
	return s
}

func (s EndpointSet) Add(e Endpoint) { s[e] = struct{}{} }

func (s EndpointSet) Has(e Endpoint) bool {
	_, ok := s[e]
	return ok
}

// Union returns a new set holding the members of s and every other set.
func (s EndpointSet) Union(others ...EndpointSet) EndpointSet {
	out := make(EndpointSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, o := range others {
		for e := range o {
			out[e] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s EndpointSet) Sorted() []Endpoint {
	out := make([]Endpoint, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
