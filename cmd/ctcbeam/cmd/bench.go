package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/ctcbeam/internal/benchmark"
	"github.com/spf13/cobra"
)

func newBenchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark beam search on synthetic matrices",
		Long: `Decode a deterministic synthetic workload at several beam widths and report
latency percentiles, throughput and allocations.

Examples:
  ctcbeam bench
  ctcbeam bench --beam-sizes 1,8,64 --timesteps 500 --classes 80
  ctcbeam bench --format json --output bench.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			opts := cfg.ToBenchmarkOptions()
			f := cmd.Flags()
			if f.Changed("beam-sizes") {
				opts.BeamSizes, _ = f.GetIntSlice("beam-sizes")
			}
			if f.Changed("timesteps") {
				opts.Timesteps, _ = f.GetInt("timesteps")
			}
			if f.Changed("classes") {
				opts.Classes, _ = f.GetInt("classes")
			}
			if f.Changed("matrices") {
				opts.Matrices, _ = f.GetInt("matrices")
			}
			if f.Changed("iterations") {
				opts.Iterations, _ = f.GetInt("iterations")
			}
			if f.Changed("peak") {
				opts.Peak, _ = f.GetFloat32("peak")
			}
			if f.Changed("seed") {
				opts.Seed, _ = f.GetInt64("seed")
			}

			report, err := benchmark.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path, _ := f.GetString("output"); path != "" {
				file, err := os.Create(path) //nolint:gosec // G304: output path is chosen by the user
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = file.Close() }()
				out = file
			}
			if format, _ := f.GetString("format"); format == "json" {
				return report.WriteJSON(out)
			}
			return report.WriteText(out)
		},
	}
	f := cmd.Flags()
	f.IntSlice("beam-sizes", nil, "beam widths to measure")
	f.Int("timesteps", 0, "timesteps per matrix")
	f.Int("classes", 0, "alphabet size including the blank")
	f.Int("matrices", 0, "number of distinct matrices")
	f.Int("iterations", 0, "passes over the matrices per beam width")
	f.Float32("peak", 0, "probability of the dominant class in every row")
	f.Int64("seed", 0, "random seed")
	f.StringP("format", "f", "text", "report format: text or json")
	f.StringP("output", "o", "", "write the report to this file")
	return cmd
}
