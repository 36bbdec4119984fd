// Package parallel splits index ranges into chunks processed by goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// Parallelize divides items into at most runtime.NumCPU() contiguous ranges
// and runs fn once per range [start, end) concurrently. It returns the first
// error produced by fn; a panic inside fn is returned as *errors.PanicError.
// Once a chunk fails, ctx passed to the remaining chunks is cancelled.
func Parallelize(ctx context.Context, items int, fn func(ctx context.Context, start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < items; start += chunkSize {
		s, e := start, min(start+chunkSize, items)
		g.Go(func() error {
			return errors.SafeExecute("parallel.Parallelize", func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return fn(gctx, s, e)
			})
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over [0, items) when items
// does not exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(ctx context.Context, items, threshold int, fn func(ctx context.Context, start, end int) error) error {
	if items <= threshold {
		if items <= 0 {
			return nil
		}
		return errors.SafeExecute("parallel.ParallelizeWithThreshold", func() error {
			return fn(ctx, 0, items)
		})
	}
	return Parallelize(ctx, items, fn)
}
