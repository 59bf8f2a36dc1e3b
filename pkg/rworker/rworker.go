package rworker

import (
	"context"
	"sync"
)

// Job runs fn in its own goroutine limited by the rate channel capacity.
// A failed run puts its error into errCh unless the channel is full. The
// job is skipped entirely when the context is cancelled before a slot
// frees up.
func Job(ctx context.Context, wg *sync.WaitGroup, fn func(context.Context) error, rate chan struct{}, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case rate <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-rate }()
		if err := fn(ctx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}
