package cmd

import (
	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/spf13/cobra"
)

// addDecoderFlags registers the alphabet and decoder flags shared by decode,
// batch and serve.
func addDecoderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("alphabet", "", "inline alphabet, first character is the blank (e.g. \"-abc\")")
	f.String("dict", "", "comma-separated dictionary files with one symbol per line")
	f.String("blank", "", "blank symbol prepended to dictionary alphabets (default \"-\")")
	f.Int("beam-size", 0, "number of hypotheses kept per timestep")
	f.Float32("blank-cutoff", 0, "skip blank extension when its probability is at or below this value")
	f.Float32("label-cutoff", 0, "skip labels whose probability is at or below this value")
	f.String("normalize", "", "softmax mode: auto, always or never")
	f.Int("top-k", 0, "return at most this many sequences (0 = all)")
	f.Bool("greedy", false, "also run best-path decoding for comparison")
	f.Bool("clean-text", false, "normalize and clean decoded text")
	f.Int("workers", 0, "number of parallel workers")
	f.String("models-dir", "", "directory searched for model and dictionary names (default $CTCBEAM_MODELS_DIR or ./models)")
}

// applyDecoderFlags copies explicitly set decoder flags over cfg.
func applyDecoderFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("alphabet") {
		cfg.Alphabet.Inline, _ = f.GetString("alphabet")
	}
	if f.Changed("dict") {
		cfg.Alphabet.DictPaths, _ = f.GetString("dict")
	}
	if f.Changed("blank") {
		cfg.Alphabet.Blank, _ = f.GetString("blank")
	}
	if f.Changed("beam-size") {
		cfg.Decoder.BeamSize, _ = f.GetInt("beam-size")
	}
	if f.Changed("blank-cutoff") {
		cfg.Decoder.BlankCutoff, _ = f.GetFloat32("blank-cutoff")
	}
	if f.Changed("label-cutoff") {
		cfg.Decoder.LabelCutoff, _ = f.GetFloat32("label-cutoff")
	}
	if f.Changed("normalize") {
		cfg.Decoder.Normalize, _ = f.GetString("normalize")
	}
	if f.Changed("top-k") {
		cfg.Decoder.TopK, _ = f.GetInt("top-k")
	}
	if f.Changed("greedy") {
		cfg.Decoder.CompareGreedy, _ = f.GetBool("greedy")
	}
	if f.Changed("clean-text") {
		cfg.Decoder.CleanText, _ = f.GetBool("clean-text")
	}
	if f.Changed("workers") {
		cfg.Decoder.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("models-dir") {
		cfg.Model.Dir, _ = f.GetString("models-dir")
	}
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "", "output format: text, json, csv or yaml")
	cmd.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
}

func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		cfg.Output.File, _ = f.GetString("output")
	}
}
