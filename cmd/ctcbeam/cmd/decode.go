package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/matrixio"
	"github.com/MeKo-Tech/ctcbeam/internal/onnx"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/MeKo-Tech/ctcbeam/internal/visualize"
	"github.com/spf13/cobra"
)

func newDecodeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <file|->",
		Short: "Decode one probability matrix with beam search",
		Long: `Decode a T x A probability matrix stored as JSON, YAML or CSV. Column 0 is the
blank; the remaining columns follow the alphabet.

With --model the file holds a T x F feature sequence that is first run through
an ONNX acoustic model; every batch entry of the model output is decoded.

Examples:
  ctcbeam decode matrix.json --alphabet "-abc"
  ctcbeam decode matrix.csv --dict chars.txt --beam-size 16 --format json
  cat matrix.json | ctcbeam decode - --alphabet "-ab" --heatmap heat.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return runDecode(cmd, cfg, args[0])
		},
	}
	addDecoderFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().String("input-format", "json", "matrix format when reading from stdin")
	cmd.Flags().String("heatmap", "", "write a PNG heatmap of the matrix and best path")
	cmd.Flags().String("model", "", "ONNX acoustic model applied to the input features")
	return cmd
}

func runDecode(cmd *cobra.Command, cfg *config.Config, input string) error {
	applyDecoderFlags(cmd, cfg)
	applyOutputFlags(cmd, cfg)
	if cmd.Flags().Changed("heatmap") {
		cfg.Output.Heatmap, _ = cmd.Flags().GetString("heatmap")
	}
	if cmd.Flags().Changed("model") {
		cfg.Model.Path, _ = cmd.Flags().GetString("model")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	alpha, err := cfg.LoadAlphabet()
	if err != nil {
		return err
	}
	pl, err := pipeline.New(cfg.ToPipelineConfig(), alpha)
	if err != nil {
		return err
	}

	inputFormat, _ := cmd.Flags().GetString("input-format")
	m, err := readMatrix(cmd.InOrStdin(), input, inputFormat)
	if err != nil {
		return err
	}
	defer m.Release()

	matrices := []ctc.Matrix{m}
	if cfg.Model.Path != "" {
		if matrices, err = runModel(cfg, alpha, m); err != nil {
			return err
		}
		defer func() {
			for i := range matrices {
				matrices[i].Release()
			}
		}()
	}

	results := make([]*pipeline.DecodeResult, len(matrices))
	for i, mat := range matrices {
		res, err := pl.ProcessMatrix(mat)
		if err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
		results[i] = res
		slog.Debug("decoded matrix", "index", i, "timesteps", res.Timesteps, "sequences", len(res.Sequences))

		if cfg.Output.Heatmap != "" {
			if err := writeHeatmap(mat, alpha, res, heatmapPath(cfg.Output.Heatmap, i, len(matrices))); err != nil {
				return err
			}
		}
	}

	out, err := formatResults(results, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), cfg.Output.File, out)
}

// readMatrix loads path, or stdin when path is "-".
func readMatrix(stdin io.Reader, path, stdinFormat string) (ctc.Matrix, error) {
	if path != "-" {
		return matrixio.Load(path)
	}
	format, err := matrixio.ParseFormat(stdinFormat)
	if err != nil {
		return ctc.Matrix{}, err
	}
	return matrixio.Read(stdin, format)
}

func runModel(cfg *config.Config, alpha *alphabet.Alphabet, features ctc.Matrix) ([]ctc.Matrix, error) {
	model, err := onnx.LoadModel(cfg.ToModelConfig(alpha.Len()))
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			slog.Warn("failed to close model", "error", err)
		}
	}()
	ms, err := model.Run(features)
	if err != nil {
		return nil, fmt.Errorf("model inference failed: %w", err)
	}
	if len(ms) == 0 {
		return nil, errors.New("model produced no output")
	}
	return ms, nil
}

func writeHeatmap(m ctc.Matrix, alpha *alphabet.Alphabet, res *pipeline.DecodeResult, path string) error {
	opts := visualize.DefaultOptions()
	if best, ok := res.Best(); ok {
		opts.Marks = visualize.MarksFromSequence(best.Labels, best.Timesteps)
	}
	img, err := visualize.Heatmap(m, alpha, opts)
	if err != nil {
		return fmt.Errorf("failed to render heatmap: %w", err)
	}
	if err := visualize.SavePNG(img, path); err != nil {
		return err
	}
	slog.Info("heatmap written", "path", path)
	return nil
}

// heatmapPath numbers the heatmap files when a model returns several matrices.
func heatmapPath(path string, index, total int) string {
	if total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), index, ext)
}

// formatResults renders results, adding an item header per matrix in text
// output when there is more than one.
func formatResults(results []*pipeline.DecodeResult, format string) (string, error) {
	if len(results) == 1 {
		return pipeline.Format(results[0], format)
	}
	var sb strings.Builder
	for i, res := range results {
		out, err := pipeline.Format(res, format)
		if err != nil {
			return "", err
		}
		if format == "" || strings.EqualFold(format, "text") {
			fmt.Fprintf(&sb, "# item %d\n", i)
		} else if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func writeOutput(stdout io.Writer, file, content string) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if file == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	slog.Info("results written", "path", file)
	return nil
}
