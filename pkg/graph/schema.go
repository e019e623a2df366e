package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
)

// Every uniqueness constraint also creates its backing lookup index, so the
// schema is constraints only. Hierarchy entities are unique on id, the two
// per-cluster singletons on cluster_id.
var schemaStatements = []string{
	"CREATE CONSTRAINT vm_id_unique IF NOT EXISTS FOR (v:VM) REQUIRE v.id IS UNIQUE",
	"CREATE CONSTRAINT cluster_id_unique IF NOT EXISTS FOR (c:Cluster) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT node_id_unique IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE",
	"CREATE CONSTRAINT pod_id_unique IF NOT EXISTS FOR (p:Pod) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT container_id_unique IF NOT EXISTS FOR (ct:Container) REQUIRE ct.id IS UNIQUE",
	"CREATE CONSTRAINT service_id_unique IF NOT EXISTS FOR (s:Service) REQUIRE s.id IS UNIQUE",
	"CREATE CONSTRAINT cluster_metrics_cluster_unique IF NOT EXISTS FOR (cm:ClusterMetrics) REQUIRE cm.cluster_id IS UNIQUE",
	"CREATE CONSTRAINT resource_usage_cluster_unique IF NOT EXISTS FOR (ru:ResourceUsage) REQUIRE ru.cluster_id IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints for every node label.
// Schema commands cannot run inside managed transactions, so each statement
// auto-commits on its own.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return kgerrors.Wrapf(kgerrors.ErrCodeGraphTransaction, err, "creating schema: %s", stmt)
		}
		if _, err := result.Consume(ctx); err != nil {
			return kgerrors.Wrapf(kgerrors.ErrCodeGraphTransaction, err, "creating schema: %s", stmt)
		}
	}

	s.logger.Info("graph schema ensured", "constraints", len(schemaStatements))
	return nil
}
