package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/matrixio"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// fileLoader defers reading a matrix file until a worker picks it up.
func fileLoader(path string) pipeline.Loader {
	return func() (ctc.Matrix, error) {
		m, err := matrixio.Load(path)
		if err != nil {
			return ctc.Matrix{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		return m, nil
	}
}

// progressCallback returns the console progress bar when enabled.
func progressCallback(config *Config) pipeline.ProgressCallback {
	if !config.ShowProgress || config.Quiet {
		return nil
	}
	w := config.Progress
	if w == nil {
		w = os.Stderr
	}
	return pipeline.NewConsoleProgressCallback(w, "Decoding: ").WithUpdateInterval(config.ProgressInterval)
}

// processFilesParallel loads and decodes files in parallel. Unless
// ContinueOnError is set, the first failure aborts the batch.
func processFilesParallel(ctx context.Context, pl *pipeline.Pipeline, paths []string,
	config *Config) ([]*pipeline.DecodeResult, []FileError, error) {
	loaders := make([]pipeline.Loader, len(paths))
	for i, path := range paths {
		loaders[i] = fileLoader(path)
	}

	var failures []FileError
	parallel := pl.Config().Parallel
	parallel.ProgressCallback = progressCallback(config)
	parallel.ErrorHandler = func(i int, err error) {
		failures = append(failures, newFileError(paths[i], err))
		slog.Warn("matrix decode failed", "file", paths[i], "error", err)
	}

	results, err := pl.ProcessLoadersParallel(ctx, loaders, parallel)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if !config.ContinueOnError {
			return nil, failures, err
		}
	}
	return results, failures, nil
}

func newFileError(path string, err error) FileError {
	fe := FileError{Path: path, Error: err.Error()}
	var de *ctc.DecodeError
	if errors.As(err, &de) {
		fe.Kind = de.Kind.String()
	}
	return fe
}
