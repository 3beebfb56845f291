// sketchctl is the command-line companion of the sketchmatch service.
//
// Usage:
//
//	sketchctl rank --reference=<points.json> --array-field=<f> --value-field=<f> <record.json>...
//	sketchctl schema <record.json>
//	sketchctl probe [--url=<base>] [--batches=N] [--candidates=N]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sketchctl",
		Short: "Rank recorded sequences against a sketched curve",
		Long:  "sketchctl ranks local records against a reference sketch, inspects\nrecord layouts and probes a running sketchmatch service.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      version,
	}
	root.AddCommand(newRankCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newProbeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
