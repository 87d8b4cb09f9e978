package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ctcbeam/internal/benchmark"
	"github.com/MeKo-Tech/ctcbeam/internal/matrixio"
	"github.com/spf13/cobra"
)

// alphabetFileName is the dictionary written next to generated matrices.
const alphabetFileName = "alphabet.txt"

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <dir>",
		Short: "Write synthetic probability matrices for testing",
		Long: `Write the deterministic synthetic matrices used by bench to a directory,
together with an alphabet.txt dictionary matching their columns.

Examples:
  ctcbeam generate testdata
  ctcbeam generate testdata --count 20 --timesteps 50 --classes 12 --format csv
  ctcbeam batch testdata --dict testdata/alphabet.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			opts := cfg.ToBenchmarkOptions()
			f := cmd.Flags()
			if f.Changed("count") {
				opts.Matrices, _ = f.GetInt("count")
			}
			if f.Changed("timesteps") {
				opts.Timesteps, _ = f.GetInt("timesteps")
			}
			if f.Changed("classes") {
				opts.Classes, _ = f.GetInt("classes")
			}
			if f.Changed("peak") {
				opts.Peak, _ = f.GetFloat32("peak")
			}
			if f.Changed("seed") {
				opts.Seed, _ = f.GetInt64("seed")
			}
			format, _ := f.GetString("format")
			return runGenerate(cmd, args[0], opts, format)
		},
	}
	f := cmd.Flags()
	f.Int("count", 0, "number of matrices to write")
	f.Int("timesteps", 0, "timesteps per matrix")
	f.Int("classes", 0, "alphabet size including the blank")
	f.Float32("peak", 0, "probability of the dominant class in every row")
	f.Int64("seed", 0, "random seed")
	f.StringP("format", "f", "json", "matrix file format: json, csv or yaml")
	return cmd
}

func runGenerate(cmd *cobra.Command, dir string, opts benchmark.Options, format string) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid generator options: %w", err)
	}
	parsed, err := matrixio.ParseFormat(format)
	if err != nil {
		return err
	}
	alpha, err := benchmark.SyntheticAlphabet(opts.Classes)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dict := strings.Join(alpha.Labels(), "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, alphabetFileName), []byte(dict), 0o600); err != nil {
		return fmt.Errorf("failed to write alphabet: %w", err)
	}

	matrices := benchmark.GenerateMatrices(opts)
	defer func() {
		for i := range matrices {
			matrices[i].Release()
		}
	}()
	for i, m := range matrices {
		path := filepath.Join(dir, fmt.Sprintf("matrix_%03d.%s", i, parsed))
		if err := matrixio.Save(path, m); err != nil {
			return err
		}
		slog.Debug("matrix written", "path", path, "timesteps", m.Rows, "classes", m.Cols)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d matrices and %s to %s\n", len(matrices), alphabetFileName, dir)
	return err
}
