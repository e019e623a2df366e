// Package cli implements the command-line interface for the kubegraph tool.
//
// # Overview
//
// kubegraph turns live Kubernetes cluster state into a Neo4j property graph.
// Each collection cycle lists nodes, pods, and services per kubeconfig
// context, normalizes resource quantities, cross-references live usage from
// the metrics API, and merges the result into the graph in one transaction
// per cluster.
//
// # Commands
//
// collect - Run collection cycles (the main loop):
//
//	kubegraph collect --interval 5m
//	kubegraph collect --context prod --context staging --iterations 1
//	kubegraph collect --dry-run --output report.json
//	kubegraph collect --listen :8080
//
// schema - Create the uniqueness constraints the merges rely on:
//
//	kubegraph schema
//
// clusters - List the hosts and clusters recorded in the graph:
//
//	kubegraph clusters --format table
//
// prune - Remove graph entities not updated since a cutoff:
//
//	kubegraph prune --older-than 168h
//
// version - Print build information.
//
// # Configuration
//
// Settings come from three layers, each overriding the previous: built-in
// defaults (including NEO4J_* environment variables), an optional YAML file
// given with --config, and command-line flags.
//
// # Output Formats
//
// Cycle reports and listings serialize as json (default), yaml, or table.
//
// # Environment Variables
//
//	NEO4J_URI        Graph database address (default bolt://localhost:7687)
//	NEO4J_USER       Graph database user (default neo4j)
//	NEO4J_PASSWORD   Graph database password
//	NEO4J_DATABASE   Graph database name (default neo4j)
//	KUBECONFIG       Path to the kubeconfig file
//	LOG_LEVEL        Log verbosity (debug, info, warn, error)
//	PORT             Operational HTTP endpoint port
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//
// # Architecture
//
// The CLI uses the urfave/cli/v3 framework and delegates to specialized
// packages:
//   - pkg/collector - Kubernetes API and metrics collection
//   - pkg/snapshot - Normalization into cluster snapshots
//   - pkg/graph - Neo4j plans, transactions, schema, and queries
//   - pkg/runner - The periodic multi-cluster loop
//   - pkg/serializer - Output formatting
//   - pkg/server - Operational HTTP endpoints
//   - pkg/logging - Structured logging
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/kubegraph/kubegraph/pkg/cli.version=1.0.0'"
package cli
