package graph

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Memory is an Executor backed by process memory. It mirrors the store's
// transactional semantics: a plan applies fully or not at all, and an edge
// whose endpoints are not both present is skipped, never created dangling.
// It backs dry-run syncs and tests.
type Memory struct {
	mu    sync.Mutex
	nodes map[nodeKey]map[string]any
	rels  map[relKey]time.Time
}

type nodeKey struct {
	Label string
	ID    string
}

type relKey struct {
	Type      string
	FromLabel string
	FromID    string
	ToLabel   string
	ToID      string
}

// StoredNode is one entity held by a Memory executor.
type StoredNode struct {
	Label string
	ID    string
	Props map[string]any
}

// StoredRelationship is one edge held by a Memory executor.
type StoredRelationship struct {
	Type        string
	FromLabel   string
	FromID      string
	ToLabel     string
	ToID        string
	LastUpdated time.Time
}

func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[nodeKey]map[string]any),
		rels:  make(map[relKey]time.Time),
	}
}

// Apply stages the whole plan against a copy of the current state and
// commits only when every statement succeeds.
func (m *Memory) Apply(ctx context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	stagedNodes := make(map[nodeKey]map[string]any, len(m.nodes))
	for key, props := range m.nodes {
		stagedNodes[key] = maps.Clone(props)
	}
	stagedRels := maps.Clone(m.rels)

	for _, merge := range plan.Nodes {
		if merge.ID == "" {
			return fmt.Errorf("cannot merge %s on empty %s", merge.Label, merge.Key)
		}
		key := nodeKey{Label: merge.Label, ID: merge.ID}
		props := stagedNodes[key]
		if props == nil {
			props = make(map[string]any, len(merge.Props))
		}
		for name, value := range merge.Props {
			if value == nil {
				delete(props, name)
				continue
			}
			props[name] = value
		}
		stagedNodes[key] = props
	}

	for _, rel := range plan.Relationships {
		if _, ok := stagedNodes[nodeKey{Label: rel.FromLabel, ID: rel.FromID}]; !ok {
			continue
		}
		if _, ok := stagedNodes[nodeKey{Label: rel.ToLabel, ID: rel.ToID}]; !ok {
			continue
		}
		key := relKey{
			Type:      rel.Type,
			FromLabel: rel.FromLabel,
			FromID:    rel.FromID,
			ToLabel:   rel.ToLabel,
			ToID:      rel.ToID,
		}
		stagedRels[key] = plan.SyncedAt
	}

	m.nodes = stagedNodes
	m.rels = stagedRels
	return nil
}

// Node returns a copy of one entity's properties.
func (m *Memory) Node(label, id string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props, ok := m.nodes[nodeKey{Label: label, ID: id}]
	if !ok {
		return nil, false
	}
	return maps.Clone(props), true
}

// Nodes returns every entity with the given label, sorted by identifier.
func (m *Memory) Nodes(label string) []StoredNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	var nodes []StoredNode
	for key, props := range m.nodes {
		if key.Label != label {
			continue
		}
		nodes = append(nodes, StoredNode{Label: key.Label, ID: key.ID, Props: maps.Clone(props)})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Relationships returns every edge, sorted for stable comparison.
func (m *Memory) Relationships() []StoredRelationship {
	m.mu.Lock()
	defer m.mu.Unlock()

	rels := make([]StoredRelationship, 0, len(m.rels))
	for key, at := range m.rels {
		rels = append(rels, StoredRelationship{
			Type:        key.Type,
			FromLabel:   key.FromLabel,
			FromID:      key.FromID,
			ToLabel:     key.ToLabel,
			ToID:        key.ToID,
			LastUpdated: at,
		})
	}
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.FromID != b.FromID {
			return a.FromID < b.FromID
		}
		return a.ToID < b.ToID
	})
	return rels
}
