package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
)

// ParallelConfig holds configuration for parallel decoding.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
	ErrorHandler     func(int, error) // Optional per-item error handler, called in input order
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// Loader produces a matrix for one work item. Matrices returned by a Loader
// are released after decoding.
type Loader func() (ctc.Matrix, error)

type decodeJob struct {
	index  int
	matrix ctc.Matrix
	load   Loader
}

type decodeResult struct {
	index  int
	result *DecodeResult
	err    error
}

// ProcessMatricesParallel decodes caller-owned matrices with a worker pool.
// Results keep the input order; failed items are nil and the first error is
// returned alongside the partial results.
func (p *Pipeline) ProcessMatricesParallel(ctx context.Context, ms []ctc.Matrix, config ParallelConfig) ([]*DecodeResult, error) {
	if len(ms) == 0 {
		return nil, errors.New("no matrices provided")
	}
	jobs := make([]decodeJob, len(ms))
	for i, m := range ms {
		jobs[i] = decodeJob{index: i, matrix: m}
	}
	return p.runParallel(ctx, jobs, config)
}

// ProcessLoadersParallel loads and decodes items with a worker pool, so that
// at most MaxWorkers matrices are held in memory at once.
func (p *Pipeline) ProcessLoadersParallel(ctx context.Context, loaders []Loader, config ParallelConfig) ([]*DecodeResult, error) {
	if len(loaders) == 0 {
		return nil, errors.New("no matrices provided")
	}
	jobs := make([]decodeJob, len(loaders))
	for i, l := range loaders {
		jobs[i] = decodeJob{index: i, load: l}
	}
	return p.runParallel(ctx, jobs, config)
}

func (p *Pipeline) runParallel(ctx context.Context, items []decodeJob, config ParallelConfig) ([]*DecodeResult, error) {
	if p == nil || p.alphabet == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(items))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(items))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan decodeJob, len(items))
	results := make(chan decodeResult, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for _, job := range items {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*DecodeResult, len(items))
	errs := make([]error, len(items))
	processed := 0
	for r := range results {
		ordered[r.index] = r.result
		errs[r.index] = r.err
		processed++
		if config.ProgressCallback != nil {
			if r.err != nil {
				config.ProgressCallback.OnError(r.index, r.err)
			}
			config.ProgressCallback.OnProgress(processed, len(items))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if firstError == nil {
			firstError = fmt.Errorf("item %d: %w", i, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, err)
		}
	}
	return ordered, firstError
}

// worker decodes jobs until the channel closes or ctx is done.
func (p *Pipeline) worker(ctx context.Context, jobs <-chan decodeJob, results chan<- decodeResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res, err := p.runJob(ctx, job)
			select {
			case results <- decodeResult{index: job.index, result: res, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runJob(ctx context.Context, job decodeJob) (*DecodeResult, error) {
	if job.load == nil {
		return p.ProcessMatrixContext(ctx, job.matrix)
	}
	m, err := job.load()
	if err != nil {
		return nil, err
	}
	defer m.Release()
	return p.ProcessMatrixContext(ctx, m)
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	Total            int           `json:"total"`
	Processed        int           `json:"processed"`
	Failed           int           `json:"failed"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerMatrix time.Duration `json:"average_per_matrix_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarizes a parallel run.
func CalculateParallelStats(results []*DecodeResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{Total: len(results), WorkerCount: workerCount, TotalDuration: duration}
	for _, r := range results {
		if r != nil {
			stats.Processed++
		} else {
			stats.Failed++
		}
	}
	if stats.Processed > 0 {
		stats.AveragePerMatrix = duration / time.Duration(stats.Processed)
		if duration > 0 {
			stats.ThroughputPerSec = float64(stats.Processed) / duration.Seconds()
		}
	}
	return stats
}
