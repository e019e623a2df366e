package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(_ context.Context, cmd *cli.Command) error {
			var w io.Writer = os.Stdout
			if cmd.Root().Writer != nil {
				w = cmd.Root().Writer
			}
			fmt.Fprintf(w, "%s %s (commit %s, built %s, %s)\n",
				appName, version, commit, date, runtime.Version())
			return nil
		},
	}
}
