package engine

import (
	"context"
	"sync"
)

// runBounded calls fn(i) for every i in [0,n) with at most limit calls in
// flight and returns once all have finished. Indices not yet started when ctx
// is canceled are skipped. Results are recombined by index by the caller.
func runBounded(ctx context.Context, n, limit int, fn func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			fn(idx)
		}(i)
	}

	wg.Wait()
}
