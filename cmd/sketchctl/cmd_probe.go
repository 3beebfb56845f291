package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/okian/sketchmatch/internal/probe"
	"github.com/okian/sketchmatch/pkg/logger"
)

func newProbeCmd() *cobra.Command {
	var cfg probe.Config
	var logFormat string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Submit generated analyses to a running service and verify the rankings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			stats, err := probe.Run(cmd.Context(), cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "matched %d/%d (mismatched %d, failed %d, rejected %d) in %s\n",
					stats.BatchesMatched, stats.BatchesGenerated, stats.BatchesMismatch,
					stats.BatchesFailed, stats.BatchesRejected, stats.Duration)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", probe.DefaultBaseURL, "Base URL of the service")
	f.IntVar(&cfg.Batches, "batches", probe.DefaultBatches, "Number of analyses to submit")
	f.IntVar(&cfg.Candidates, "candidates", probe.DefaultCandidates, "Candidates per analysis")
	f.IntVar(&cfg.Points, "points", probe.DefaultPoints, "Samples per curve")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Concurrent submissions")
	f.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.Method, "method", probe.DefaultMethod, "Scoring method")
	f.IntVar(&cfg.Resolution, "resolution", 0, "Resample resolution (0: server default)")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Generator seed")
	f.BoolVar(&cfg.Verbose, "verbose", false, "Log every verified batch")
	f.StringVar(&logFormat, "log-format", logger.FormatText, "Log format: text or json")
	return cmd
}
