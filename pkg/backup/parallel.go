package backup

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/williamokano/dump_dbs/pkg/config"
)

// runParallel runs entries concurrently with at most limit in flight. Results
// are stored at the entry's index so configuration order is preserved.
func (d *Dispatcher) runParallel(ctx context.Context, entries []config.Entry, now time.Time, results []Result, limit int) {
	sem := semaphore.NewWeighted(int64(limit))

	// Goroutines never return errors: a failed entry must not cancel its siblings
	var g errgroup.Group

	for i, entry := range entries {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{Entry: entry.Name, Skipped: entry.Scalar}
				if !entry.Scalar {
					results[i].Error = err
					d.logger.Error().Err(err).Str("entry", entry.Name).Str("stage", "dispatch").Msg("entry failed")
				}
				return nil
			}
			defer sem.Release(1)

			results[i] = d.runEntry(ctx, entry, now)
			return nil
		})
	}

	g.Wait()
}
