package pipeline

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlphabet(t *testing.T, s string) *alphabet.Alphabet {
	t.Helper()
	a, err := alphabet.Parse(s)
	require.NoError(t, err)
	return a
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ctc.DefaultBeamSize, cfg.BeamSize)
	assert.Equal(t, ctc.NormalizeAuto, cfg.Normalize)
	assert.Positive(t, cfg.Parallel.MaxWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero beam", func(c *Config) { c.BeamSize = 0 }},
		{"nan cutoff", func(c *Config) { c.BlankCutoff = float32(math.NaN()) }},
		{"negative blank cutoff", func(c *Config) { c.BlankCutoff = -0.1 }},
		{"negative label cutoff", func(c *Config) { c.LabelCutoff = -1 }},
		{"negative top-k", func(c *Config) { c.TopK = -1 }},
		{"bad normalize", func(c *Config) { c.Normalize = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BeamSize = 7
	cfg.LabelCutoff = 0.01
	opts := cfg.Options()
	assert.Equal(t, 7, opts.BeamSize)
	assert.InDelta(t, 0.01, opts.LabelCutoff, 1e-9)
}

func TestBuilder(t *testing.T) {
	p, err := NewBuilder().
		WithAlphabetString("-ab").
		WithBeamSize(5).
		WithCutoffs(0.001, 0.002).
		WithNormalize(ctc.NormalizeNever).
		WithTopK(3).
		WithGreedy(true).
		WithCleanText(true).
		WithWorkers(2).
		Build()
	require.NoError(t, err)

	cfg := p.Config()
	assert.Equal(t, 5, cfg.BeamSize)
	assert.Equal(t, 3, cfg.TopK)
	assert.True(t, cfg.CompareGreedy)
	assert.True(t, cfg.CleanText)
	assert.Equal(t, 2, cfg.Parallel.MaxWorkers)
	assert.Equal(t, "-ab", p.Alphabet().String())
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder().WithAlphabetString("").Build()
	assert.Error(t, err)

	_, err = NewBuilder().Build()
	assert.ErrorContains(t, err, "alphabet is required")

	_, err = NewBuilder().WithAlphabetString("-a").WithBeamSize(0).Build()
	assert.ErrorContains(t, err, "beam size")
}

func TestNew_DefaultsNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize = ""
	p, err := New(cfg, testAlphabet(t, "-a"))
	require.NoError(t, err)
	assert.Equal(t, ctc.NormalizeAuto, p.Config().Normalize)
}

func TestWithOverrides(t *testing.T) {
	p, err := New(DefaultConfig(), testAlphabet(t, "-a"))
	require.NoError(t, err)
	cfg := p.Config()
	cfg.BeamSize = 3
	q, err := p.WithOverrides(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Config().BeamSize)
	assert.Same(t, p.Alphabet(), q.Alphabet())
}
