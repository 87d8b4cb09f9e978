package batch

import (
	"fmt"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// buildPipeline creates a decode pipeline from the batch configuration.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	alpha, err := alphabet.Load(config.Alphabet, config.DictPaths, config.Blank)
	if err != nil {
		return nil, fmt.Errorf("failed to load alphabet: %w", err)
	}

	mode, err := ctc.ParseNormalizeMode(config.Normalize)
	if err != nil {
		return nil, err
	}

	b := pipeline.NewBuilder().
		WithAlphabet(alpha).
		WithBeamSize(config.BeamSize).
		WithCutoffs(config.BlankCutoff, config.LabelCutoff).
		WithNormalize(mode).
		WithTopK(config.TopK).
		WithGreedy(config.CompareGreedy).
		WithCleanText(config.CleanText)
	if config.Workers > 0 {
		b = b.WithWorkers(config.Workers)
	}
	return b.Build()
}
