package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/kubegraph/kubegraph/pkg/serializer"
)

const appName = "kubegraph"

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/kubegraph/kubegraph/pkg/cli.version=1.0.0"
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Flags shared across commands.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the YAML configuration file",
		Sources: cli.EnvVars("KUBEGRAPH_CONFIG"),
	}
	kubeconfigFlag = &cli.StringFlag{
		Name:  "kubeconfig",
		Usage: "path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)",
	}
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   serializer.StdoutURI,
		Usage:   "output file path (default: stdout)",
	}
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   string(serializer.FormatJSON),
		Usage:   "output format (json, yaml, table)",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log verbosity (debug, info, warn, error)",
	}
	uriFlag = &cli.StringFlag{
		Name:  "uri",
		Usage: "graph database address (e.g. bolt://localhost:7687)",
	}
	userFlag = &cli.StringFlag{
		Name:  "user",
		Usage: "graph database user",
	}
	passwordFlag = &cli.StringFlag{
		Name:  "password",
		Usage: "graph database password",
	}
	databaseFlag = &cli.StringFlag{
		Name:  "database",
		Usage: "graph database name",
	}
)

// New assembles the kubegraph command tree.
func New() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Usage:                 "Map Kubernetes cluster state into a Neo4j property graph",
		Version:               version,
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			collectCmd(),
			schemaCmd(),
			clustersCmd(),
			pruneCmd(),
			versionCmd(),
		},
	}
}
