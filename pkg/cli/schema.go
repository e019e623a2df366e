package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func schemaCmd() *cli.Command {
	return &cli.Command{
		Name:                  "schema",
		EnableShellCompletion: true,
		Usage:                 "Create the graph uniqueness constraints",
		Description: `Creates one uniqueness constraint per entity label. The constraints back
the lookup indexes every merge relies on. Safe to run repeatedly; existing
constraints are left untouched.`,
		Flags: []cli.Flag{
			configFlag,
			uriFlag,
			userFlag,
			passwordFlag,
			databaseFlag,
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

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			logger.Info("schema ready")
			return nil
		},
	}
}
