package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const minConcurrency = 1

// Dispatch launches count units with at most concurrency running at a time and
// returns the successful addresses in completion order.
//
// Units run on a context detached from cancellation so that calls already in
// flight finish on their own. Once ctx is cancelled no further unit is started.
// Dispatch returns only after every started unit has returned.
func Dispatch(ctx context.Context, count, concurrency int, unit Unit) []string {
	if count <= 0 || unit == nil {
		return nil
	}
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if concurrency > count {
		concurrency = count
	}

	unitCtx := context.WithoutCancel(ctx)

	var (
		mu        sync.Mutex
		addresses = make([]string, 0, count)
		g         errgroup.Group
	)
	g.SetLimit(concurrency)

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may have blocked on the limit while ctx was cancelled.
			if ctx.Err() != nil {
				return nil
			}
			address, ok := unit(unitCtx)
			if !ok {
				return nil
			}
			mu.Lock()
			addresses = append(addresses, address)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return addresses
}
