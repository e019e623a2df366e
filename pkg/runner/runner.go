// Package runner drives the collect, build, sync pipeline. Each cycle runs
// the pipeline once per configured kubeconfig context with bounded
// parallelism; one cluster's failure never blocks the others.
package runner

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kubegraph/kubegraph/pkg/collector"
	"github.com/kubegraph/kubegraph/pkg/graph"
	"github.com/kubegraph/kubegraph/pkg/model"
	"github.com/kubegraph/kubegraph/pkg/snapshot"
)

const defaultWorkers = 4

// ClusterReport is the outcome of one cluster's pipeline run within a cycle.
type ClusterReport struct {
	Context       string          `json:"context"`
	Collected     bool            `json:"collected"`
	Written       bool            `json:"written"`
	Entities      int             `json:"entities,omitempty"`
	Relationships int             `json:"relationships,omitempty"`
	Error         string          `json:"error,omitempty"`
	Snapshot      *model.Snapshot `json:"snapshot,omitempty"`
}

// CycleReport is the outcome of one full cycle across all contexts.
type CycleReport struct {
	Cycle           int             `json:"cycle"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Host            model.Host      `json:"host"`
	Clusters        []ClusterReport `json:"clusters"`
	Failed          int             `json:"failed"`
}

// Runner owns the collection loop. Fields are set once before Run.
type Runner struct {
	// Factory creates a collector per kubeconfig context.
	Factory collector.Factory
	// Builder turns collected records into snapshots.
	Builder *snapshot.Builder
	// Syncer writes snapshots to the graph.
	Syncer *graph.Syncer
	// Host is the identity of the machine running the collection.
	Host model.Host
	// Contexts are the kubeconfig contexts to collect, one worker each.
	Contexts []string

	// Interval is the pause between cycles.
	Interval time.Duration
	// Iterations bounds the number of cycles; 0 runs until the context is
	// cancelled.
	Iterations int
	// Workers caps concurrent cluster pipelines per cycle.
	Workers int
	// SyncTimeout bounds each graph transaction. The sync context is
	// detached from the loop context so shutdown never interrupts a
	// transaction mid-write.
	SyncTimeout time.Duration

	// OnCycle, when set, receives every cycle report as it completes.
	OnCycle func(CycleReport)

	Logger *slog.Logger
}

// Run executes collection cycles until the iteration bound is reached or the
// context is cancelled. Cancellation between cycles is a clean stop, not an
// error.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Info("collection loop starting",
		"contexts", r.Contexts,
		"interval", r.Interval,
		"iterations", r.Iterations)

	for cycle := 1; ; cycle++ {
		select {
		case <-ctx.Done():
			logger.Info("collection loop stopped")
			return nil
		default:
		}

		report := r.runCycle(ctx, cycle, logger)

		status := "ok"
		if report.Failed > 0 {
			status = "failed"
		}
		cyclesTotal.WithLabelValues(status).Inc()
		cycleDuration.Observe(report.DurationSeconds)

		logger.Info("cycle complete",
			"cycle", cycle,
			"clusters", len(report.Clusters),
			"failed", report.Failed,
			"duration", time.Duration(report.DurationSeconds*float64(time.Second)))

		if r.OnCycle != nil {
			r.OnCycle(report)
		}

		if r.Iterations > 0 && cycle >= r.Iterations {
			return nil
		}

		timer := time.NewTimer(r.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("collection loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (r *Runner) runCycle(ctx context.Context, cycle int, logger *slog.Logger) CycleReport {
	start := time.Now()
	reports := make([]ClusterReport, len(r.Contexts))

	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	// A plain group, not WithContext: one cluster's failure is recorded in
	// its report and must not cancel the siblings.
	var g errgroup.Group
	g.SetLimit(workers)
	for i, name := range r.Contexts {
		g.Go(func() error {
			reports[i] = r.runCluster(ctx, name, logger)
			return nil
		})
	}
	_ = g.Wait()

	report := CycleReport{
		Cycle:           cycle,
		StartedAt:       start.UTC(),
		DurationSeconds: time.Since(start).Seconds(),
		Host:            r.Host,
		Clusters:        reports,
	}
	for _, cluster := range reports {
		if cluster.Error != "" {
			report.Failed++
		}
	}
	return report
}

func (r *Runner) runCluster(ctx context.Context, contextName string, logger *slog.Logger) ClusterReport {
	report := ClusterReport{Context: contextName}
	logger = logger.With("context", contextName)

	col, err := r.Factory.Create(contextName)
	if err != nil {
		logger.Error("creating collector failed", "error", err)
		report.Error = err.Error()
		clusterSyncsTotal.WithLabelValues(contextName, "failed").Inc()
		return report
	}

	stageStart := time.Now()
	records, err := col.Collect(ctx)
	stageDuration.WithLabelValues(contextName, "collect").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		logger.Error("collection failed", "error", err)
		report.Error = err.Error()
		clusterSyncsTotal.WithLabelValues(contextName, "failed").Inc()
		return report
	}
	report.Collected = true

	stageStart = time.Now()
	snap, err := r.Builder.Build(r.Host.ID, records)
	stageDuration.WithLabelValues(contextName, "build").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		logger.Error("snapshot build failed", "error", err)
		report.Error = err.Error()
		clusterSyncsTotal.WithLabelValues(contextName, "failed").Inc()
		return report
	}
	report.Snapshot = snap
	droppedEntities.WithLabelValues(contextName).Set(float64(snap.Dropped))

	// Detach from the loop context so an in-flight transaction finishes or
	// rolls back on its own terms during shutdown.
	syncCtx := context.WithoutCancel(ctx)
	if r.SyncTimeout > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(syncCtx, r.SyncTimeout)
		defer cancel()
	}

	stageStart = time.Now()
	result, err := r.Syncer.Sync(syncCtx, &r.Host, snap)
	stageDuration.WithLabelValues(contextName, "sync").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		logger.Error("graph sync failed", "error", err)
		report.Error = err.Error()
		clusterSyncsTotal.WithLabelValues(contextName, "failed").Inc()
		return report
	}

	report.Written = result.Written
	report.Entities = result.Entities
	report.Relationships = result.Relationships
	syncedEntities.WithLabelValues(contextName).Set(float64(result.Entities))
	clusterSyncsTotal.WithLabelValues(contextName, "ok").Inc()
	return report
}
