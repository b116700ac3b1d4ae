// Command reliefrender is the primary/worker binary: one Cobra root command
// with a "render" subcommand that runs as the primary and a "worker"
// subcommand that runs as a peer (SPEC_FULL.md §6).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relief-render/reliefrender/internal/rerr"
)

func main() {
	root := &cobra.Command{
		Use:   "reliefrender",
		Short: "Distributed relief-shaded elevation renderer",
	}

	root.AddCommand(newRenderCmd())
	root.AddCommand(newWorkerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(rerr.ExitCodeFor(err))
	}
}
