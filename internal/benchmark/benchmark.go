// Package benchmark measures beam search latency and allocation on synthetic
// probability matrices.
package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/common"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
)

// Options configures a benchmark run.
type Options struct {
	BeamSizes  []int   `json:"beam_sizes"`
	Timesteps  int     `json:"timesteps"`
	Classes    int     `json:"classes"`
	Matrices   int     `json:"matrices"`
	Iterations int     `json:"iterations"`
	Peak       float32 `json:"peak"`
	Seed       int64   `json:"seed"`
}

// DefaultOptions returns a moderate workload.
func DefaultOptions() Options {
	return Options{
		BeamSizes:  []int{1, 10, 100},
		Timesteps:  200,
		Classes:    30,
		Matrices:   8,
		Iterations: 5,
		Peak:       0.6,
		Seed:       1,
	}
}

// Validate rejects empty workloads.
func (o Options) Validate() error {
	if len(o.BeamSizes) == 0 {
		return errors.New("at least one beam size is required")
	}
	for _, b := range o.BeamSizes {
		if b < 1 {
			return fmt.Errorf("beam size must be at least 1, got %d", b)
		}
	}
	if o.Timesteps < 1 || o.Classes < 2 || o.Matrices < 1 || o.Iterations < 1 {
		return errors.New("timesteps, matrices and iterations must be positive and classes at least 2")
	}
	if !(o.Peak > 0 && o.Peak <= 1) {
		return fmt.Errorf("peak must be in (0, 1], got %v", o.Peak)
	}
	return nil
}

// Entry summarizes the decodes run at one beam size.
type Entry struct {
	BeamSize         int           `json:"beam_size"`
	Decodes          int           `json:"decodes"`
	Errors           int           `json:"errors"`
	Min              time.Duration `json:"min_ns"`
	Mean             time.Duration `json:"mean_ns"`
	P50              time.Duration `json:"p50_ns"`
	P95              time.Duration `json:"p95_ns"`
	P99              time.Duration `json:"p99_ns"`
	Max              time.Duration `json:"max_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
	BytesPerDecode   uint64        `json:"bytes_per_decode"`
	AllocsPerDecode  uint64        `json:"allocs_per_decode"`
	AvgSequences     float64       `json:"avg_sequences"`
}

// Report is the outcome of Run.
type Report struct {
	Options  Options            `json:"options"`
	Entries  []Entry            `json:"entries"`
	Memory   common.MemoryStats `json:"memory"`
	Duration time.Duration      `json:"duration_ns"`
}

// SyntheticAlphabet returns a blank followed by classes-1 distinct symbols.
func SyntheticAlphabet(classes int) (*alphabet.Alphabet, error) {
	symbols := make([]string, classes)
	symbols[0] = alphabet.DefaultBlank
	for i := 1; i < classes; i++ {
		if i <= 26 {
			symbols[i] = string(rune('a' + i - 1))
		} else {
			symbols[i] = string(rune(0x4E00 + i))
		}
	}
	return alphabet.New(symbols)
}

// GenerateMatrices builds deterministic matrices where every row puts peak
// mass on one random column and spreads the rest randomly.
func GenerateMatrices(opts Options) []ctc.Matrix {
	rng := rand.New(rand.NewSource(opts.Seed))
	out := make([]ctc.Matrix, opts.Matrices)
	for i := range out {
		m := ctc.AllocMatrix(opts.Timesteps, opts.Classes)
		for t := range m.Rows {
			row := m.Row(t)
			var sum float32
			for k := range row {
				row[k] = rng.Float32()
				sum += row[k]
			}
			hot := rng.Intn(opts.Classes)
			scale := (1 - opts.Peak) / (sum - row[hot])
			for k := range row {
				row[k] *= scale
			}
			row[hot] = opts.Peak
		}
		out[i] = m
	}
	return out
}

// Run decodes the synthetic workload once per beam size and iteration.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	alpha, err := SyntheticAlphabet(opts.Classes)
	if err != nil {
		return nil, err
	}
	matrices := GenerateMatrices(opts)
	defer func() {
		for i := range matrices {
			matrices[i].Release()
		}
	}()

	total := common.StartStopwatch()
	report := &Report{Options: opts}
	for _, beamSize := range opts.BeamSizes {
		entry, err := runBeamSize(ctx, matrices, alpha, beamSize, opts.Iterations)
		if err != nil {
			return nil, err
		}
		slog.Debug("benchmark entry", "beam_size", beamSize, "mean", entry.Mean, "p95", entry.P95)
		report.Entries = append(report.Entries, entry)
	}
	report.Duration = total.Total()
	report.Memory = common.GetMemoryStats()
	return report, nil
}

func runBeamSize(ctx context.Context, matrices []ctc.Matrix, alpha ctc.Alphabet, beamSize, iterations int) (Entry, error) {
	opts := ctc.DefaultOptions()
	opts.BeamSize = beamSize
	entry := Entry{BeamSize: beamSize}
	latencies := make([]time.Duration, 0, iterations*len(matrices))
	sequences := 0

	runtime.GC()
	before := common.GetMemoryStats()
	wall := common.StartStopwatch()
	for range iterations {
		for _, m := range matrices {
			if err := ctx.Err(); err != nil {
				return Entry{}, err
			}
			start := time.Now()
			res, err := ctc.BeamSearch(m, alpha, opts)
			latencies = append(latencies, time.Since(start))
			if err != nil {
				entry.Errors++
				continue
			}
			sequences += res.Len()
		}
	}
	elapsed := wall.Total()
	bytes, mallocs := common.GetMemoryStats().AllocatedSince(before)

	entry.Decodes = len(latencies)
	slices.Sort(latencies)
	var sum time.Duration
	for _, d := range latencies {
		sum += d
	}
	entry.Min = latencies[0]
	entry.Max = latencies[len(latencies)-1]
	entry.Mean = sum / time.Duration(len(latencies))
	entry.P50 = percentile(latencies, 50)
	entry.P95 = percentile(latencies, 95)
	entry.P99 = percentile(latencies, 99)
	if elapsed > 0 {
		entry.ThroughputPerSec = float64(entry.Decodes) / elapsed.Seconds()
	}
	entry.BytesPerDecode = bytes / uint64(entry.Decodes)
	entry.AllocsPerDecode = mallocs / uint64(entry.Decodes)
	if ok := entry.Decodes - entry.Errors; ok > 0 {
		entry.AvgSequences = float64(sequences) / float64(ok)
	}
	return entry, nil
}

// percentile returns the nearest-rank percentile of sorted durations.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(sorted))+0.5) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// WriteText prints the report as an aligned table.
func (r *Report) WriteText(w io.Writer) error {
	o := r.Options
	if _, err := fmt.Fprintf(w, "Workload: %d matrices of %dx%d, %d iterations, seed %d\n\n",
		o.Matrices, o.Timesteps, o.Classes, o.Iterations, o.Seed); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BEAM\tDECODES\tERRORS\tMEAN\tP50\tP95\tP99\tDECODES/S\tKB/DECODE\tSEQS")
	for _, e := range r.Entries {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\t%v\t%v\t%v\t%v\t%.1f\t%d\t%.1f\n",
			e.BeamSize, e.Decodes, e.Errors,
			e.Mean.Round(time.Microsecond), e.P50.Round(time.Microsecond),
			e.P95.Round(time.Microsecond), e.P99.Round(time.Microsecond),
			e.ThroughputPerSec, e.BytesPerDecode/1024, e.AvgSequences)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal: %v  %s\n", r.Duration.Round(time.Millisecond), r.Memory)
	return err
}

// WriteJSON prints the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
