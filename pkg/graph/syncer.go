package graph

import (
	"context"
	"log/slog"
	"time"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
	"github.com/kubegraph/kubegraph/pkg/model"
)

// Executor applies a sync plan atomically: every statement commits together
// or none do.
type Executor interface {
	Apply(ctx context.Context, plan *Plan) error
}

// SyncResult reports one cluster sync.
type SyncResult struct {
	Written       bool
	Entities      int
	Relationships int
	Duration      time.Duration
}

// Syncer writes snapshots through an Executor.
type Syncer struct {
	exec   Executor
	logger *slog.Logger
}

func NewSyncer(exec Executor, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{exec: exec, logger: logger}
}

// Sync merges the snapshot and its host identity into the graph in one
// transaction. On failure the graph keeps its pre-sync state and the result
// reports not written.
func (s *Syncer) Sync(ctx context.Context, host *model.Host, snap *model.Snapshot) (SyncResult, error) {
	start := time.Now()
	plan := BuildPlan(host, snap, start)

	if err := s.exec.Apply(ctx, plan); err != nil {
		return SyncResult{Duration: time.Since(start)},
			kgerrors.Wrapf(kgerrors.ErrCodeGraphTransaction, err, "syncing cluster %q", snap.Cluster.ID)
	}

	result := SyncResult{
		Written:       true,
		Entities:      len(plan.Nodes),
		Relationships: len(plan.Relationships),
		Duration:      time.Since(start),
	}

	s.logger.Info("cluster synced",
		"cluster", snap.Cluster.ID,
		"entities", result.Entities,
		"relationships", result.Relationships,
		"duration", result.Duration)

	return result, nil
}
