package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MultiUploader handles uploading to multiple backends in parallel
type MultiUploader struct {
	logger zerolog.Logger
}

// NewMultiUploader creates a new multi-uploader
func NewMultiUploader(logger zerolog.Logger) *MultiUploader {
	return &MultiUploader{logger: logger}
}

// Upload uploads a file to multiple backends concurrently. Each upload is
// verified by comparing the stored size with the local one. Results are
// returned in the order of backends.
func (m *MultiUploader) Upload(ctx context.Context, backends []Backend, sourcePath, destPath string) []Result {
	results := make([]Result, len(backends))

	info, err := os.Stat(sourcePath)
	if err != nil {
		for i, b := range backends {
			results[i] = Result{
				BackendName: b.Name(),
				BackendType: b.Type(),
				Path:        destPath,
				Error:       fmt.Errorf("stat %s: %w", sourcePath, err),
			}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, backend := range backends {
		wg.Add(1)

		go func(i int, b Backend) {
			defer wg.Done()

			start := time.Now()

			m.logger.Debug().
				Str("backend", b.Name()).
				Str("type", b.Type()).
				Str("file", destPath).
				Msg("starting upload")

			err := m.write(ctx, b, sourcePath, destPath, info.Size())
			duration := time.Since(start)

			results[i] = Result{
				BackendName: b.Name(),
				BackendType: b.Type(),
				Path:        destPath,
				Size:        info.Size(),
				Success:     err == nil,
				Error:       err,
				Duration:    duration,
			}

			if err != nil {
				m.logger.Error().
					Err(err).
					Str("backend", b.Name()).
					Dur("duration", duration).
					Msg("upload failed")
			} else {
				m.logger.Info().
					Str("backend", b.Name()).
					Str("file", destPath).
					Int64("size_bytes", info.Size()).
					Dur("duration", duration).
					Msg("upload succeeded")
			}
		}(i, backend)
	}

	wg.Wait()
	return results
}

func (m *MultiUploader) write(ctx context.Context, b Backend, sourcePath, destPath string, size int64) error {
	if err := b.Write(ctx, sourcePath, destPath); err != nil {
		return err
	}

	stored, err := b.Stat(ctx, destPath)
	if err != nil {
		return WrapError(b.Name(), "verify", err)
	}
	if stored.Size != size {
		return WrapError(b.Name(), "verify", fmt.Errorf("%w: %d != %d", ErrSizeMismatch, stored.Size, size))
	}
	return nil
}

// Failed returns the results that did not succeed
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}
