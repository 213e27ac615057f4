package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SubgraphEnv composes the extra environment for one subgraph.
// Later sources win: env_files in order, then the top-level env list, then
// the subgraph's own env. ${VAR} references are expanded against the
// composed variables first and the process environment second.
func (c *Config) SubgraphEnv(s SubgraphConfig) ([]string, error) {
	m := make(map[string]string)
	for _, p := range c.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	applyPairs(m, c.Env)
	applyPairs(m, s.Env)
	if len(m) == 0 {
		return nil, nil
	}

	lookup := func(k string) string {
		if v, ok := m[k]; ok {
			return v
		}
		return os.Getenv(k)
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+os.Expand(v, lookup))
	}
	sort.Strings(out)
	return out, nil
}

func applyPairs(m map[string]string, kvs []string) {
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
}

func loadEnvFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if i := strings.IndexByte(line, '='); i > 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.Trim(strings.TrimSpace(line[i+1:]), `"'`)
			m[k] = v
		}
	}
	return m, nil
}
