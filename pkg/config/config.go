// Package config loads and validates the kubegraph configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
	"github.com/kubegraph/kubegraph/pkg/logging"
	"github.com/kubegraph/kubegraph/pkg/serializer"
)

// Duration wraps time.Duration so YAML configs accept either Go duration
// strings ("5m", "90s") or plain integer seconds.
type Duration time.Duration

// Std returns the wrapped standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the top-level configuration for the collector daemon.
type Config struct {
	// Cluster access
	Kubeconfig string   `yaml:"kubeconfig"`
	Contexts   []string `yaml:"contexts"`
	Namespace  string   `yaml:"namespace"`

	// Collection loop
	Interval       Duration `yaml:"interval"`
	Iterations     int      `yaml:"iterations"`
	Workers        int      `yaml:"workers"`
	CollectTimeout Duration `yaml:"collect_timeout"`

	// Report output
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	LogLevel string `yaml:"log_level"`

	Graph  GraphConfig  `yaml:"graph"`
	Server ServerConfig `yaml:"server"`
}

// GraphConfig holds the Neo4j connection settings.
type GraphConfig struct {
	URI         string   `yaml:"uri"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Database    string   `yaml:"database"`
	SyncTimeout Duration `yaml:"sync_timeout"`
}

// ServerConfig holds the operational HTTP endpoint settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Default returns the built-in configuration, overridden by environment
// variables where set. An explicit config file overrides both.
func Default() *Config {
	cfg := &Config{
		Interval:       Duration(5 * time.Minute),
		Workers:        4,
		CollectTimeout: Duration(30 * time.Second),
		Format:         string(serializer.FormatJSON),
		Output:         serializer.StdoutURI,
		LogLevel:       slog.LevelInfo.String(),
		Graph: GraphConfig{
			URI:         "bolt://localhost:7687",
			Username:    "neo4j",
			Database:    "neo4j",
			SyncTimeout: Duration(2 * time.Minute),
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}

	// Override with environment variables if set
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Graph.Username = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Graph.Password = password
	}
	if database := os.Getenv("NEO4J_DATABASE"); database != "" {
		cfg.Graph.Database = database
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if logLevelStr := os.Getenv("LOG_LEVEL"); logLevelStr != "" {
		cfg.LogLevel = logLevelStr
	}

	return cfg
}

// Load reads a YAML file and overlays it on Default. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeConfig, err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeConfig, err, "parsing config file %s", path)
	}
	return cfg, nil
}

// Validate checks for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Interval.Std() <= 0 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "interval must be positive, got %s", c.Interval.Std())
	}
	if c.Iterations < 0 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "iterations must not be negative, got %d", c.Iterations)
	}
	if c.Workers < 1 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "workers must be at least 1, got %d", c.Workers)
	}
	if c.CollectTimeout.Std() < 0 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "collect_timeout must not be negative, got %s", c.CollectTimeout.Std())
	}
	if serializer.Format(c.Format).IsUnknown() {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "unknown format %q, supported: %v", c.Format, serializer.SupportedFormats())
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return kgerrors.Wrap(kgerrors.ErrCodeConfig, err, "log_level")
	}
	if c.Graph.URI == "" {
		return kgerrors.New(kgerrors.ErrCodeConfig, "graph.uri must not be empty")
	}
	if c.Graph.Username == "" {
		return kgerrors.New(kgerrors.ErrCodeConfig, "graph.username must not be empty")
	}
	if c.Graph.SyncTimeout.Std() < 0 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "graph.sync_timeout must not be negative, got %s", c.Graph.SyncTimeout.Std())
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return kgerrors.Newf(kgerrors.ErrCodeConfig, "server.port %d out of range", c.Server.Port)
	}
	return nil
}
