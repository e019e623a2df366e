package cli

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kubegraph/kubegraph/pkg/serializer"
)

func pruneCmd() *cli.Command {
	return &cli.Command{
		Name:                  "prune",
		EnableShellCompletion: true,
		Usage:                 "Remove graph entities not updated since a cutoff",
		Description: `Deletes every entity whose last sync is older than the cutoff, together
with its relationships. Sync itself never deletes anything, so clusters that
stop reporting linger until pruned.

# Examples

Remove everything not seen for a week (the default):
  kubegraph prune

Remove everything not seen for a day:
  kubegraph prune --older-than 24h`,
		Flags: []cli.Flag{
			configFlag,
			&cli.DurationFlag{
				Name:  "older-than",
				Value: 7 * 24 * time.Hour,
				Usage: "age at which entities are considered stale",
			},
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

			cutoff := time.Now().UTC().Add(-cmd.Duration("older-than"))
			deleted, err := store.PruneBefore(ctx, cutoff)
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

			summary := struct {
				Cutoff  time.Time `json:"cutoff" yaml:"cutoff"`
				Deleted int       `json:"deleted" yaml:"deleted"`
			}{Cutoff: cutoff, Deleted: deleted}

			return writer.Serialize(ctx, summary)
		},
	}
}
