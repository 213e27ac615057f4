package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/graphdev/internal/logger"
	"github.com/loykin/graphdev/internal/netstat"
	"github.com/loykin/graphdev/internal/runner"
	"github.com/loykin/graphdev/internal/session"
	"github.com/loykin/graphdev/internal/subgraph"
)

// EnvPrefix is the prefix of environment overrides, e.g. GRAPHDEV_DISCOVERY_TIMEOUT.
const EnvPrefix = "GRAPHDEV"

// Config represents the top-level TOML structure.
type Config struct {
	Socket    string           `toml:"socket" mapstructure:"socket"`
	Env       []string         `toml:"env" mapstructure:"env"`
	EnvFiles  []string         `toml:"env_files" mapstructure:"env_files"`
	Discovery DiscoveryConfig  `toml:"discovery" mapstructure:"discovery"`
	Log       LogConfig        `toml:"log" mapstructure:"log"`
	Metrics   MetricsConfig    `toml:"metrics" mapstructure:"metrics"`
	History   HistoryConfig    `toml:"history" mapstructure:"history"`
	Subgraphs []SubgraphConfig `toml:"subgraphs" mapstructure:"subgraphs"`
}

type DiscoveryConfig struct {
	Timeout      time.Duration `toml:"timeout" mapstructure:"timeout"`
	PollInterval time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	ProbeTimeout time.Duration `toml:"probe_timeout" mapstructure:"probe_timeout"`
	ProbePaths   []string      `toml:"probe_paths" mapstructure:"probe_paths"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Color      bool   `toml:"color" mapstructure:"color"`
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type MetricsConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// SubgraphConfig is one [[subgraphs]] entry. When URL is empty the endpoint
// is discovered after the command starts.
type SubgraphConfig struct {
	Name    string   `toml:"name" mapstructure:"name"`
	Command string   `toml:"command" mapstructure:"command"`
	URL     string   `toml:"url" mapstructure:"url"`
	WorkDir string   `toml:"workdir" mapstructure:"workdir"`
	Env     []string `toml:"env" mapstructure:"env"`
}

// DefaultSocket is where the development session listens unless configured.
func DefaultSocket() string { return filepath.Join(os.TempDir(), "graphdev.sock") }

func setDefaults(v *viper.Viper) {
	v.SetDefault("socket", DefaultSocket())
	v.SetDefault("discovery.timeout", runner.DefaultDiscoveryTimeout)
	v.SetDefault("discovery.poll_interval", runner.DefaultPollInterval)
	v.SetDefault("discovery.probe_timeout", netstat.DefaultProbeTimeout)
	v.SetDefault("discovery.probe_paths", netstat.DefaultProbePaths)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logger.FormatText))
	v.SetDefault("log.color", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("history.dsn", "")
}

// Load reads the TOML file at path and applies GRAPHDEV_* overrides.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// AddSubgraph appends s, e.g. one given on the command line.
func (c *Config) AddSubgraph(s SubgraphConfig) {
	c.Subgraphs = append(c.Subgraphs, s)
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Socket) == "" {
		errs = append(errs, errors.New("socket must not be empty"))
	}
	for key, d := range map[string]time.Duration{
		"discovery.timeout":       c.Discovery.Timeout,
		"discovery.poll_interval": c.Discovery.PollInterval,
		"discovery.probe_timeout": c.Discovery.ProbeTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatText, logger.FormatJSON, "":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	seen := make(map[string]bool, len(c.Subgraphs))
	for i, s := range c.Subgraphs {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("subgraphs[%d]: name is required", i))
			continue
		}
		if !session.IsValidName(s.Name) {
			errs = append(errs, fmt.Errorf("subgraph %q: name may only contain letters, digits, '.', '_' and '-'", s.Name))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("subgraph %q: duplicate name", s.Name))
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Command) == "" {
			errs = append(errs, fmt.Errorf("subgraph %q: command is required", s.Name))
		}
		if s.URL != "" {
			if _, err := subgraph.ParseEndpoint(s.URL); err != nil {
				errs = append(errs, fmt.Errorf("subgraph %q: %w", s.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the [log] table into logger.Config.
func (l LogConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  l.Level,
		Format: logger.Format(l.Format),
		Color:  l.Color,
		File: logger.FileConfig{
			Path:       l.File,
			MaxSizeMB:  l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAgeDays: l.MaxAgeDays,
			Compress:   l.Compress,
		},
	}
}

// Endpoint returns the configured URL, or "" when it must be discovered.
func (s SubgraphConfig) Endpoint() (subgraph.Endpoint, error) {
	if s.URL == "" {
		return "", nil
	}
	return subgraph.ParseEndpoint(s.URL)
}
