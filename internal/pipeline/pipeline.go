package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
)

// Config holds the decoding parameters applied to every matrix.
type Config struct {
	BeamSize    int
	BlankCutoff float32
	LabelCutoff float32
	Normalize   ctc.NormalizeMode
	// TopK limits the number of returned sequences (0 = all survivors).
	TopK int
	// CompareGreedy also runs the best-path decoder for comparison.
	CompareGreedy bool
	// CleanText post-processes decoded strings (see CleanOptions).
	CleanText bool
	Clean     CleanOptions

	Parallel ParallelConfig
}

// DefaultConfig returns the decoder defaults.
func DefaultConfig() Config {
	return Config{
		BeamSize:  ctc.DefaultBeamSize,
		Normalize: ctc.NormalizeAuto,
		Clean:     DefaultCleanOptions(),
		Parallel:  DefaultParallelConfig(),
	}
}

// Validate checks the configuration for values that can never decode.
func (c Config) Validate() error {
	if c.BeamSize < 1 {
		return fmt.Errorf("beam size must be at least 1, got %d", c.BeamSize)
	}
	if math.IsNaN(float64(c.BlankCutoff)) || math.IsNaN(float64(c.LabelCutoff)) {
		return errors.New("cut-offs must be numbers")
	}
	if c.BlankCutoff < 0 || c.LabelCutoff < 0 {
		return fmt.Errorf("cut-offs must not be negative, got blank=%g label=%g", c.BlankCutoff, c.LabelCutoff)
	}
	if c.TopK < 0 {
		return fmt.Errorf("top-k must be non-negative, got %d", c.TopK)
	}
	if _, err := ctc.ParseNormalizeMode(string(c.Normalize)); err != nil {
		return err
	}
	return nil
}

// Options converts the config into beam search options.
func (c Config) Options() ctc.Options {
	return ctc.Options{
		BeamSize:    c.BeamSize,
		BlankCutoff: c.BlankCutoff,
		LabelCutoff: c.LabelCutoff,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg   Config
	alpha *alphabet.Alphabet
	err   error
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithAlphabet sets the alphabet used to render sequences.
func (b *Builder) WithAlphabet(a *alphabet.Alphabet) *Builder {
	b.alpha = a
	return b
}

// WithAlphabetString parses an inline alphabet whose first rune is the blank.
func (b *Builder) WithAlphabetString(s string) *Builder {
	a, err := alphabet.Parse(s)
	if err != nil {
		b.err = err
		return b
	}
	b.alpha = a
	return b
}

// WithBeamSize sets the beam width.
func (b *Builder) WithBeamSize(n int) *Builder {
	b.cfg.BeamSize = n
	return b
}

// WithCutoffs sets the blank and label expansion thresholds.
func (b *Builder) WithCutoffs(blank, label float32) *Builder {
	b.cfg.BlankCutoff = blank
	b.cfg.LabelCutoff = label
	return b
}

// WithNormalize sets the softmax mode.
func (b *Builder) WithNormalize(mode ctc.NormalizeMode) *Builder {
	b.cfg.Normalize = mode
	return b
}

// WithTopK limits the number of returned sequences.
func (b *Builder) WithTopK(k int) *Builder {
	b.cfg.TopK = k
	return b
}

// WithGreedy toggles the best-path comparison.
func (b *Builder) WithGreedy(enabled bool) *Builder {
	b.cfg.CompareGreedy = enabled
	return b
}

// WithCleanText toggles text post-processing.
func (b *Builder) WithCleanText(enabled bool) *Builder {
	b.cfg.CleanText = enabled
	return b
}

// WithWorkers sets the worker count for parallel decoding.
func (b *Builder) WithWorkers(n int) *Builder {
	b.cfg.Parallel.MaxWorkers = n
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.cfg, b.alpha)
}

// Pipeline decodes probability matrices with a fixed alphabet and config. It
// is safe for concurrent use: every decode owns its own search state.
type Pipeline struct {
	cfg      Config
	alphabet *alphabet.Alphabet
	profiler Profiler
}

// New creates a pipeline.
func New(cfg Config, alpha *alphabet.Alphabet) (*Pipeline, error) {
	if alpha == nil {
		return nil, errors.New("alphabet is required")
	}
	if cfg.Normalize == "" {
		cfg.Normalize = ctc.NormalizeAuto
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{cfg: cfg, alphabet: alpha}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Alphabet returns the pipeline alphabet.
func (p *Pipeline) Alphabet() *alphabet.Alphabet { return p.alphabet }

// Stats returns cumulative decode counters.
func (p *Pipeline) Stats() map[string]any { return p.profiler.Snapshot() }

// WithOverrides returns a pipeline sharing the alphabet but using cfg. The
// counters start from zero.
func (p *Pipeline) WithOverrides(cfg Config) (*Pipeline, error) {
	return New(cfg, p.alphabet)
}
