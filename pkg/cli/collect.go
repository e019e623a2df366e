package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kubegraph/kubegraph/pkg/collector"
	"github.com/kubegraph/kubegraph/pkg/graph"
	"github.com/kubegraph/kubegraph/pkg/runner"
	"github.com/kubegraph/kubegraph/pkg/serializer"
	"github.com/kubegraph/kubegraph/pkg/server"
	"github.com/kubegraph/kubegraph/pkg/snapshot"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:                  "collect",
		EnableShellCompletion: true,
		Usage:                 "Collect cluster state and sync it into the graph",
		Description: `Runs collection cycles: list nodes, pods, and services for each kubeconfig
context, normalize resource quantities, cross-reference live usage from the
metrics API, and merge everything into the graph in one transaction per
cluster. A cycle report is written after every cycle.

# Examples

Collect the current kubeconfig context every five minutes:
  kubegraph collect

Collect two clusters once and write the cycle report to a file:
  kubegraph collect --context prod --context staging -n 1 -o report.json

Exercise the full pipeline without a database:
  kubegraph collect --dry-run -n 1

Expose health and Prometheus metrics while the loop runs:
  kubegraph collect --listen :8080`,
		Flags: []cli.Flag{
			configFlag,
			kubeconfigFlag,
			&cli.StringSliceFlag{
				Name:  "context",
				Usage: "kubeconfig context to collect (repeatable; default: current context)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "limit pod metrics collection to one namespace",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"t"},
				Usage:   "pause between collection cycles",
			},
			&cli.IntFlag{
				Name:    "iterations",
				Aliases: []string{"n"},
				Usage:   "number of cycles to run (0 = until interrupted)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "concurrent cluster collections per cycle",
			},
			&cli.StringFlag{
				Name:  "hostname",
				Usage: "override the reported host name",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "apply sync plans to an in-memory graph instead of Neo4j",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "address for the operational HTTP endpoint (e.g. :8080)",
			},
			uriFlag,
			userFlag,
			passwordFlag,
			databaseFlag,
			outputFlag,
			formatFlag,
			logLevelFlag,
		},
		Action: runCollect,
	}
}

func runCollect(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	host, err := resolveHost(logger, cmd.String("hostname"))
	if err != nil {
		return err
	}

	contexts := cfg.Contexts
	if len(contexts) == 0 {
		current, _, err := collector.Contexts(cfg.Kubeconfig)
		if err != nil {
			return err
		}
		if current == "" {
			return fmt.Errorf("kubeconfig has no current context and none was given with --context")
		}
		contexts = []string{current}
	}

	var executor graph.Executor
	if cmd.Bool("dry-run") {
		logger.Info("dry run, applying sync plans to an in-memory graph")
		executor = graph.NewMemory()
	} else {
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
		executor = store
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

	var ops *server.Server

	run := &runner.Runner{
		Factory: &collector.DefaultFactory{
			Kubeconfig: cfg.Kubeconfig,
			Namespace:  cfg.Namespace,
			Timeout:    cfg.CollectTimeout.Std(),
			Logger:     logger,
		},
		Builder:     snapshot.NewBuilder(logger),
		Syncer:      graph.NewSyncer(executor, logger),
		Host:        host,
		Contexts:    contexts,
		Interval:    cfg.Interval.Std(),
		Iterations:  cfg.Iterations,
		Workers:     cfg.Workers,
		SyncTimeout: cfg.Graph.SyncTimeout.Std(),
		Logger:      logger,
		OnCycle: func(report runner.CycleReport) {
			if ops != nil {
				ops.SetReady(true)
			}
			if err := writer.Serialize(ctx, report); err != nil {
				logger.Error("writing cycle report failed", "error", err)
			}
		},
	}

	if !cfg.Server.Enabled {
		return run.Run(ctx)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Server.Address
	srvCfg.Port = cfg.Server.Port
	ops = server.New(
		server.WithName(appName),
		server.WithVersion(version),
		server.WithConfig(srvCfg),
		server.WithLogger(logger),
	)

	// The server lives exactly as long as the loop: when the loop hits its
	// iteration bound, stopOps drains the server; when the server fails, the
	// group context stops the loop.
	runCtx, stopOps := context.WithCancel(ctx)
	defer stopOps()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return ops.Run(gctx)
	})
	g.Go(func() error {
		defer stopOps()
		return run.Run(gctx)
	})
	return g.Wait()
}
