package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
)

// HostSummary is one VM row read back from the graph.
type HostSummary struct {
	ID          string    `json:"id" yaml:"id"`
	Hostname    string    `json:"hostname" yaml:"hostname"`
	Platform    string    `json:"platform" yaml:"platform"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

// ClusterSummary is one Cluster row read back from the graph.
type ClusterSummary struct {
	ID          string    `json:"id" yaml:"id"`
	Context     string    `json:"context" yaml:"context"`
	HostID      string    `json:"host_id" yaml:"host_id"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated"`
}

// ListHosts returns every host machine in the graph, most recently updated
// first.
func (s *Store) ListHosts(ctx context.Context) ([]HostSummary, error) {
	records, err := s.readAll(ctx,
		"MATCH (v:VM) RETURN v.id AS id, v.hostname AS hostname, v.platform AS platform, v.last_updated AS last_updated ORDER BY v.last_updated DESC")
	if err != nil {
		return nil, kgerrors.Wrap(kgerrors.ErrCodeGraphTransaction, err, "listing hosts")
	}

	hosts := make([]HostSummary, 0, len(records))
	for _, record := range records {
		hosts = append(hosts, HostSummary{
			ID:          stringValue(record, "id"),
			Hostname:    stringValue(record, "hostname"),
			Platform:    stringValue(record, "platform"),
			LastUpdated: timeValue(record, "last_updated"),
		})
	}
	return hosts, nil
}

// ListClusters returns every cluster in the graph, most recently updated
// first.
func (s *Store) ListClusters(ctx context.Context) ([]ClusterSummary, error) {
	records, err := s.readAll(ctx,
		"MATCH (c:Cluster) RETURN c.id AS id, c.context AS context, c.host_id AS host_id, c.last_updated AS last_updated ORDER BY c.last_updated DESC")
	if err != nil {
		return nil, kgerrors.Wrap(kgerrors.ErrCodeGraphTransaction, err, "listing clusters")
	}

	clusters := make([]ClusterSummary, 0, len(records))
	for _, record := range records {
		clusters = append(clusters, ClusterSummary{
			ID:          stringValue(record, "id"),
			Context:     stringValue(record, "context"),
			HostID:      stringValue(record, "host_id"),
			LastUpdated: timeValue(record, "last_updated"),
		})
	}
	return clusters, nil
}

// PruneBefore removes every entity last updated before cutoff, along with its
// relationships, and returns the number of entities deleted. This is the only
// deletion path; sync itself never removes anything.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			"MATCH (n) WHERE n.last_updated < $cutoff DETACH DELETE n",
			map[string]any{"cutoff": cutoff.UTC()})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return 0, kgerrors.Wrap(kgerrors.ErrCodeGraphTransaction, err, "pruning stale entities")
	}

	count := deleted.(int)
	s.logger.Info("pruned stale entities", "cutoff", cutoff.UTC(), "deleted", count)
	return count, nil
}

func (s *Store) readAll(ctx context.Context, query string) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return rows.([]*neo4j.Record), nil
}

func stringValue(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

func timeValue(record *neo4j.Record, key string) time.Time {
	value, ok := record.Get(key)
	if !ok {
		return time.Time{}
	}
	t, _ := value.(time.Time)
	return t
}
