package cycle

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachSeries calls fn for every item, one after the other, and returns the
// results in item order.
func ForEachSeries[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, 0, len(items))

	for _, item := range items {
		results = append(results, fn(ctx, item))
	}

	return results
}

// ForEachBounded calls fn for every item with at most limit calls in flight
// and returns the results in item order. A limit below 2 runs in series.
func ForEachBounded[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) R) []R {
	if limit < 2 {
		return ForEachSeries(ctx, items, fn)
	}

	results := make([]R, len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)

			return nil
		})
	}

	_ = g.Wait()

	return results
}
