package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/kubegraph/kubegraph/pkg/config"
	"github.com/kubegraph/kubegraph/pkg/graph"
	"github.com/kubegraph/kubegraph/pkg/hostinfo"
	"github.com/kubegraph/kubegraph/pkg/identity"
	"github.com/kubegraph/kubegraph/pkg/logging"
	"github.com/kubegraph/kubegraph/pkg/model"
)

// loadConfig resolves the effective configuration. Flags override the config
// file, the file overrides defaults and environment variables.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("kubeconfig") {
		cfg.Kubeconfig = cmd.String("kubeconfig")
	}
	if cmd.IsSet("context") {
		cfg.Contexts = cmd.StringSlice("context")
	}
	if cmd.IsSet("namespace") {
		cfg.Namespace = cmd.String("namespace")
	}
	if cmd.IsSet("interval") {
		cfg.Interval = config.Duration(cmd.Duration("interval"))
	}
	if cmd.IsSet("iterations") {
		cfg.Iterations = int(cmd.Int("iterations"))
	}
	if cmd.IsSet("workers") {
		cfg.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("output") {
		cfg.Output = cmd.String("output")
	}
	if cmd.IsSet("format") {
		cfg.Format = cmd.String("format")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("uri") {
		cfg.Graph.URI = cmd.String("uri")
	}
	if cmd.IsSet("user") {
		cfg.Graph.Username = cmd.String("user")
	}
	if cmd.IsSet("password") {
		cfg.Graph.Password = cmd.String("password")
	}
	if cmd.IsSet("database") {
		cfg.Graph.Database = cmd.String("database")
	}
	if listen := cmd.String("listen"); listen != "" {
		host, portStr, err := net.SplitHostPort(listen)
		if err != nil {
			return nil, fmt.Errorf("invalid --listen address %q: %w", listen, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --listen port %q: %w", portStr, err)
		}
		cfg.Server.Enabled = true
		cfg.Server.Address = host
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the default structured logger at the configured
// level.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.SetDefaultStructuredLogger(appName, version, level), nil
}

// resolveHost derives the stable identity of the machine running this
// process.
func resolveHost(logger *slog.Logger, hostnameOverride string) (model.Host, error) {
	id := hostinfo.Resolve(logger, hostnameOverride)
	hostID, err := identity.ForHost(id.Hostname, id.FirstSeen)
	if err != nil {
		return model.Host{}, err
	}
	return model.Host{
		ID:        hostID,
		Name:      id.Hostname,
		Addresses: id.Addresses,
		Platform:  id.Platform,
		Runtime:   id.Runtime,
		FirstSeen: id.FirstSeen,
	}, nil
}

// openStore connects to the configured graph database.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*graph.Store, error) {
	return graph.NewStore(ctx, graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}, logger)
}
