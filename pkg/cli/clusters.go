package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kubegraph/kubegraph/pkg/graph"
	"github.com/kubegraph/kubegraph/pkg/serializer"
)

func clustersCmd() *cli.Command {
	return &cli.Command{
		Name:                  "clusters",
		EnableShellCompletion: true,
		Usage:                 "List hosts and clusters recorded in the graph",
		Description: `Reads back the host machines and clusters currently in the graph, most
recently updated first.

# Examples

  kubegraph clusters
  kubegraph clusters --format table
  kubegraph clusters -f yaml -o inventory.yaml`,
		Flags: []cli.Flag{
			configFlag,
			uriFlag,
			userFlag,
			passwordFlag,
			databaseFlag,
			outputFlag,
			formatFlag,
			logLevelFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("closing graph store failed", "error", err)
				}
			}()

			hosts, err := store.ListHosts(ctx)
			if err != nil {
				return err
			}
			clusters, err := store.ListClusters(ctx)
			if err != nil {
				return err
			}

			writer, err := serializer.NewFileWriterOrStdout(serializer.Format(cfg.Format), cfg.Output)
			if err != nil {
				return err
			}
			defer func() {
				if closer, ok := writer.(serializer.Closer); ok {
					if err := closer.Close(); err != nil {
						logger.Warn("failed to close serializer", "error", err)
					}
				}
			}()

			inventory := struct {
				Hosts    []graph.HostSummary    `json:"hosts" yaml:"hosts"`
				Clusters []graph.ClusterSummary `json:"clusters" yaml:"clusters"`
			}{Hosts: hosts, Clusters: clusters}

			return writer.Serialize(ctx, inventory)
		},
	}
}
