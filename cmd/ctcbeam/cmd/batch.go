package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/ctcbeam/internal/batch"
	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <files or directories...>",
		Short: "Decode many matrix files in parallel",
		Long: `Decode every matrix file (.json, .yaml, .yml, .csv) named on the command line or
found in the given directories using a pool of workers. Results keep the input
order.

Examples:
  ctcbeam batch a.json b.json --alphabet "-abc"
  ctcbeam batch matrices/ --recursive --workers 8 --format json --output results.json
  ctcbeam batch matrices/ --include "*.csv" --continue-on-error --stats`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return runBatch(cmd, cfg, args)
		},
	}
	addDecoderFlags(cmd)
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "search directories recursively")
	f.StringSlice("include", nil, "only decode files whose name matches one of these patterns")
	f.StringSlice("exclude", nil, "skip files whose name matches one of these patterns")
	f.Bool("continue-on-error", false, "keep going when a file fails to decode")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Bool("stats", false, "print processing statistics")
	f.BoolP("quiet", "q", false, "suppress non-result output")
	return cmd
}

func configToBatchConfig(cmd *cobra.Command, cfg *config.Config) (*batch.Config, error) {
	applyDecoderFlags(cmd, cfg)
	applyOutputFlags(cmd, cfg)
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Batch.Workers = cfg.Decoder.Workers
	}
	if f.Changed("recursive") {
		cfg.Batch.Recursive, _ = f.GetBool("recursive")
	}
	if f.Changed("include") {
		cfg.Batch.Include, _ = f.GetStringSlice("include")
	}
	if f.Changed("exclude") {
		cfg.Batch.Exclude, _ = f.GetStringSlice("exclude")
	}
	if f.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	bc := cfg.ToBatchConfig()
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.ShowStats, _ = f.GetBool("stats")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.Progress = cmd.ErrOrStderr()
	return bc, nil
}

func runBatch(cmd *cobra.Command, cfg *config.Config, args []string) error {
	bc, err := configToBatchConfig(cmd, cfg)
	if err != nil {
		return err
	}

	result, err := batch.ProcessBatch(cmd.Context(), args, bc)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	return nil
}
