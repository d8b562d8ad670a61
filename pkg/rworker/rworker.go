// Package rworker runs indexed jobs with a bounded number in flight.
package rworker

import (
	"context"
	"sync"
)

// Job starts fn in a goroutine that holds a slot of rate while it runs. The
// first error is sent to errCh if there is room for it.
func Job(wg *sync.WaitGroup, fn func() error, rate chan struct{}, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		rate <- struct{}{}
		defer func() { <-rate }()
		if err := fn(); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}

// Run calls fn for every index in [0, n) with at most rate calls at once.
// Jobs not yet started when ctx is done or a job has failed are skipped.
// Run returns the first error.
func Run(ctx context.Context, n, rate int, fn func(ctx context.Context, i int) error) error {
	if rate < 1 {
		rate = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		slots = make(chan struct{}, rate)
		errCh = make(chan error, 1)
	)
	for i := 0; i < n; i++ {
		i := i
		Job(&wg, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				cancel()
				return err
			}
			return nil
		}, slots, errCh)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
