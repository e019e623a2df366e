package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
)

// Config holds the connection settings for the Neo4j store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store is the Neo4j-backed executor. The driver pools connections; sessions
// are acquired per call and released on every exit path.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewStore connects to Neo4j and verifies the server is reachable before
// returning.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeGraphTransaction, err, "creating driver for %s", cfg.URI)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, kgerrors.Wrapf(kgerrors.ErrCodeGraphTransaction, err, "connecting to graph store at %s", cfg.URI)
	}

	logger.Info("connected to graph store", "uri", cfg.URI, "database", cfg.Database)

	return &Store{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Apply runs every statement of the plan in one managed write transaction.
// Any failure rolls the whole transaction back, leaving the graph in its
// pre-sync state.
func (s *Store) Apply(ctx context.Context, plan *Plan) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, merge := range plan.Nodes {
			query, params := merge.cypher()
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, err
			}
		}
		for _, rel := range plan.Relationships {
			query, params := rel.cypher(plan.SyncedAt)
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (m NodeMerge) cypher() (string, map[string]any) {
	query := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props", m.Label, m.Key)
	return query, map[string]any{"id": m.ID, "props": m.Props}
}

// cypher renders the edge merge. Matching the endpoints first means an edge
// whose endpoints are missing is silently skipped rather than created
// dangling.
func (r RelationshipMerge) cypher(now time.Time) (string, map[string]any) {
	query := fmt.Sprintf(
		"MATCH (a:%s {%s: $from}), (b:%s {%s: $to}) MERGE (a)-[r:%s]->(b) SET r.last_updated = $now",
		r.FromLabel, r.FromKey, r.ToLabel, r.ToKey, r.Type,
	)
	return query, map[string]any{"from": r.FromID, "to": r.ToID, "now": now}
}
