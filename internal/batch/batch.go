// Package batch decodes many matrix files with one pipeline.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProcessBatch discovers matrix files under paths and decodes them in
// parallel with the given configuration.
func ProcessBatch(ctx context.Context, paths []string, config *Config) (*Result, error) {
	if config == nil {
		return nil, errors.New("batch config is required")
	}
	files, err := discoverMatrixFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover matrix files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no matrix files found")
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build decode pipeline: %w", err)
	}

	startTime := time.Now()
	results, failures, err := processFilesParallel(ctx, pl, files, config)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Results:     results,
		Paths:       files,
		Failures:    failures,
		Duration:    duration,
		WorkerCount: pl.Config().Parallel.MaxWorkers,
	}, nil
}
