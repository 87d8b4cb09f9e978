package config

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/batch"
	"github.com/MeKo-Tech/ctcbeam/internal/benchmark"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/models"
	"github.com/MeKo-Tech/ctcbeam/internal/onnx"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	bench := benchmark.DefaultOptions()
	dec := pipeline.DefaultConfig()
	return Config{
		LogLevel: "info",
		Alphabet: AlphabetConfig{
			Blank: alphabet.DefaultBlank,
		},
		Decoder: DecoderConfig{
			BeamSize:    dec.BeamSize,
			Normalize:   string(dec.Normalize),
			UnicodeForm: "nfc",
			Workers:     dec.Parallel.MaxWorkers,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     16,
			MaxBatch:        64,
			MaxBeamSize:     1000,
			MaxAlphabetSize: 1024,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 120,
			RequestsPerHour:   3000,
			MaxRequestsPerDay: 20000,
			MaxDataPerDayMB:   1024,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Bench: BenchConfig{
			BeamSizes:  bench.BeamSizes,
			Timesteps:  bench.Timesteps,
			Classes:    bench.Classes,
			Matrices:   bench.Matrices,
			Iterations: bench.Iterations,
			Peak:       bench.Peak,
			Seed:       bench.Seed,
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Decoder.BeamSize < 1 {
		return fmt.Errorf("invalid decoder beam size: %d (must be positive)", c.Decoder.BeamSize)
	}
	if err := validateCutoff(c.Decoder.BlankCutoff, "decoder.blank_cutoff"); err != nil {
		return err
	}
	if err := validateCutoff(c.Decoder.LabelCutoff, "decoder.label_cutoff"); err != nil {
		return err
	}
	if _, err := ctc.ParseNormalizeMode(c.Decoder.Normalize); err != nil {
		return err
	}
	if c.Decoder.TopK < 0 {
		return fmt.Errorf("invalid decoder top_k: %d (must not be negative)", c.Decoder.TopK)
	}
	validForms := []string{"", "nfc", "nfd", "nfkc", "nfkd", "none"}
	if !slices.Contains(validForms, strings.ToLower(c.Decoder.UnicodeForm)) {
		return fmt.Errorf("invalid unicode form: %s (must be one of: %s)", c.Decoder.UnicodeForm, strings.Join(validForms[1:], ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.MaxBatch <= 0 {
		return fmt.Errorf("invalid max batch: %d (must be positive)", c.Server.MaxBatch)
	}
	if c.Server.MaxBeamSize <= 0 {
		return fmt.Errorf("invalid max beam size: %d (must be positive)", c.Server.MaxBeamSize)
	}
	if c.Server.MaxAlphabetSize <= 1 {
		return fmt.Errorf("invalid max alphabet size: %d (must be at least 2)", c.Server.MaxAlphabetSize)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.RequestsPerHour <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min, %d/hour (must be positive)",
			c.RateLimit.RequestsPerMinute, c.RateLimit.RequestsPerHour)
	}

	if c.GPU.MemoryLimit != "auto" && c.GPU.MemoryLimit != "" {
		if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
			return fmt.Errorf("invalid GPU memory limit: %w", err)
		}
	}

	return nil
}

// LoadAlphabet resolves the configured alphabet.
func (c *Config) LoadAlphabet() (*alphabet.Alphabet, error) {
	dicts := models.ResolveDictionaryPaths(c.Model.Dir, c.Alphabet.DictPaths)
	return alphabet.Load(c.Alphabet.Inline, dicts, c.Alphabet.Blank)
}

// ToPipelineConfig converts the decoder section to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.BeamSize = c.Decoder.BeamSize
	cfg.BlankCutoff = c.Decoder.BlankCutoff
	cfg.LabelCutoff = c.Decoder.LabelCutoff
	cfg.Normalize = ctc.NormalizeMode(c.Decoder.Normalize)
	cfg.TopK = c.Decoder.TopK
	cfg.CompareGreedy = c.Decoder.CompareGreedy
	cfg.CleanText = c.Decoder.CleanText
	if c.Decoder.UnicodeForm != "" {
		cfg.Clean.NormalizeForm = strings.ToUpper(c.Decoder.UnicodeForm)
	}
	if c.Decoder.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Decoder.Workers
	}
	return cfg
}

// ToBatchConfig converts to batch.Config.
func (c *Config) ToBatchConfig() *batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Alphabet = c.Alphabet.Inline
	cfg.DictPaths = models.ResolveDictionaryPaths(c.Model.Dir, c.Alphabet.DictPaths)
	cfg.Blank = c.Alphabet.Blank
	cfg.BeamSize = c.Decoder.BeamSize
	cfg.BlankCutoff = c.Decoder.BlankCutoff
	cfg.LabelCutoff = c.Decoder.LabelCutoff
	cfg.Normalize = c.Decoder.Normalize
	cfg.TopK = c.Decoder.TopK
	cfg.CompareGreedy = c.Decoder.CompareGreedy
	cfg.CleanText = c.Decoder.CleanText
	cfg.Format = c.Output.Format
	cfg.OutputFile = c.Output.File
	cfg.Workers = c.Batch.Workers
	cfg.ContinueOnError = c.Batch.ContinueOnError
	cfg.Recursive = c.Batch.Recursive
	cfg.IncludePatterns = c.Batch.Include
	cfg.ExcludePatterns = c.Batch.Exclude
	return cfg
}

// ToBenchmarkOptions converts to benchmark.Options.
func (c *Config) ToBenchmarkOptions() benchmark.Options {
	return benchmark.Options{
		BeamSizes:  c.Bench.BeamSizes,
		Timesteps:  c.Bench.Timesteps,
		Classes:    c.Bench.Classes,
		Matrices:   c.Bench.Matrices,
		Iterations: c.Bench.Iterations,
		Peak:       c.Bench.Peak,
		Seed:       c.Bench.Seed,
	}
}

// ToModelConfig converts to onnx.ModelConfig. classes is the alphabet size.
func (c *Config) ToModelConfig(classes int) onnx.ModelConfig {
	gpu := onnx.DefaultGPUConfig()
	gpu.UseGPU = c.GPU.Enabled
	gpu.DeviceID = c.GPU.Device
	if limit, err := parseMemoryLimit(c.GPU.MemoryLimit); err == nil {
		gpu.GPUMemLimit = limit
	}
	return onnx.ModelConfig{
		Path:       models.ResolveModelPath(c.Model.Dir, c.Model.Path),
		NumThreads: c.Model.NumThreads,
		GPU:        gpu,
		Classes:    classes,
	}
}

// validateCutoff accepts any probability in [0, 1].
func validateCutoff(value float32, name string) error {
	if math.IsNaN(float64(value)) || value < 0 || value > 1 {
		return fmt.Errorf("invalid %s: %v (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit parses a memory limit string such as "1GB" or "512MB"
// into bytes. "auto" and "" mean unlimited.
func parseMemoryLimit(limit string) (uint64, error) {
	limit = strings.TrimSpace(strings.ToUpper(limit))
	if limit == "" || limit == "AUTO" {
		return 0, nil
	}

	units := []struct {
		suffix     string
		multiplier uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	for _, u := range units {
		if numStr, ok := strings.CutSuffix(limit, u.suffix); ok {
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil || num < 0 {
				return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
			}
			return uint64(num * float64(u.multiplier)), nil
		}
	}
	return 0, fmt.Errorf("memory limit must end with one of: B, KB, MB, GB, TB")
}
