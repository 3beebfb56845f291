package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/internal/domain/extract"
	"github.com/okian/sketchmatch/internal/domain/model"
	"github.com/okian/sketchmatch/internal/domain/scoring"
	"github.com/okian/sketchmatch/internal/domain/types"
)

type rankFlags struct {
	reference     string
	arrayField    string
	valueField    string
	method        string
	frechetWeight float64
	dtwWeight     float64
	resolution    int
	parallelism   int
	asJSON        bool
	quiet         bool
}

func newRankCmd() *cobra.Command {
	var flags rankFlags
	cmd := &cobra.Command{
		Use:   "rank [flags] <record.json>...",
		Short: "Rank local record files against a reference sketch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.reference, "reference", "", "Path to a JSON array of {x,y} points (required)")
	f.StringVar(&flags.arrayField, "array-field", "", "Record property holding the sample array (required)")
	f.StringVar(&flags.valueField, "value-field", "", "Sample property holding the value (required)")
	f.StringVar(&flags.method, "method", scoring.MethodCombined, "Scoring method: frechet, dtw or combined")
	f.Float64Var(&flags.frechetWeight, "frechet-weight", 0.5, "Fréchet weight for the combined method")
	f.Float64Var(&flags.dtwWeight, "dtw-weight", 0.5, "DTW weight for the combined method")
	f.IntVar(&flags.resolution, "resolution", 64, "Number of points both curves are resampled to")
	f.IntVar(&flags.parallelism, "parallelism", 1, "Candidates scored at once")
	f.BoolVar(&flags.asJSON, "json", false, "Print results as JSON")
	f.BoolVar(&flags.quiet, "quiet", false, "Do not report progress on stderr")

	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("array-field")
	_ = cmd.MarkFlagRequired("value-field")
	return cmd
}

func runRank(cmd *cobra.Command, flags rankFlags, paths []string) error {
	reference, err := readReference(flags.reference)
	if err != nil {
		return err
	}
	method, err := scoring.ParseMethod(flags.method, flags.frechetWeight, flags.dtwWeight)
	if err != nil {
		return err
	}
	inputs := make([]extract.Input, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		inputs = append(inputs, extract.Input{Name: filepath.Base(p), Content: string(data)})
	}

	ctrl := analysis.NewController(analysis.WithParallelism(flags.parallelism))
	run := ctrl.Start(cmd.Context(), analysis.Request{
		Reference: reference,
		Inputs:    inputs,
		Fields:    extract.Fields{Array: flags.arrayField, Value: flags.valueField},
		Config:    analysis.Config{Resolution: flags.resolution, Method: method},
	})

	stderr := cmd.ErrOrStderr()
	var done *analysis.Completed
	for ev := range run.Events() {
		switch e := ev.(type) {
		case analysis.Progress:
			if !flags.quiet {
				fmt.Fprintf(stderr, "progress %3.0f%% %s\n", e.Fraction*100, e.Status)
			}
		case analysis.Diagnostic:
			fmt.Fprintf(stderr, "skipped %s: %s\n", e.Name, e.Message)
		case analysis.Completed:
			done = &e
		case analysis.Failed:
			return errors.New(e.Message)
		}
	}
	if done == nil {
		return errors.New("analysis cancelled")
	}
	return printRanking(cmd, *done, flags.asJSON)
}

func printRanking(cmd *cobra.Command, done analysis.Completed, asJSON bool) error {
	out := cmd.OutOrStdout()
	entries := types.Ranked(done.Results)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Results []types.Entry `json:"results"`
			Skipped int           `json:"skipped"`
		}{entries, done.Skipped})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\n", e.Rank, e.Name, e.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if done.Skipped > 0 {
		fmt.Fprintf(out, "%d skipped\n", done.Skipped)
	}
	return nil
}

func readReference(path string) (model.Path, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	var ref model.Path
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("parse reference: %w", err)
	}
	return ref, nil
}
