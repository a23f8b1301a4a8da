package dataflow

import (
	"context"
	"sync"
)

// FanIn merges streams into one. The merged stream is closed once every input
// is drained or ctx is done; items arrive in no particular order.
func FanIn[T any](ctx context.Context, streams ...Stream[T]) Stream[T] {
	merged := make(chan T, len(streams))

	var wg sync.WaitGroup
	wg.Add(len(streams))
	for _, s := range streams {
		go func(s Stream[T]) {
			defer wg.Done()
			forward(ctx, s, merged)
		}(s)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}

func forward[T any](ctx context.Context, in Stream[T], out chan<- T) {
	for {
		var item T
		var ok bool
		select {
		case <-ctx.Done():
			return
		case item, ok = <-in:
			if !ok {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case out <- item:
		}
	}
}
