package batch

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// Config holds all configuration for batch decoding.
type Config struct {
	// Alphabet
	Alphabet  string
	DictPaths string
	Blank     string

	// Decoder settings
	BeamSize      int
	BlankCutoff   float32
	LabelCutoff   float32
	Normalize     string
	TopK          int
	CompareGreedy bool
	CleanText     bool

	// Output
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	Progress         io.Writer
}

// DefaultConfig returns batch defaults matching the decoder defaults.
func DefaultConfig() *Config {
	return &Config{
		BeamSize:         ctc.DefaultBeamSize,
		Normalize:        string(ctc.NormalizeAuto),
		Format:           "text",
		Workers:          runtime.NumCPU(),
		ProgressInterval: 100 * time.Millisecond,
	}
}

// FileError records a file that could not be decoded.
type FileError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Result holds the result of batch processing. Results and Paths are
// parallel; failed files have a nil result.
type Result struct {
	Results     []*pipeline.DecodeResult
	Paths       []string
	Failures    []FileError
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
}

// FormatResults formats the batch results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", len(r.Paths))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per matrix: %v\n", stats.AveragePerMatrix.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f matrices/sec\n", stats.ThroughputPerSec)
}
