// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"fmt"
	"sync"
)

// ItemError reports which work item failed.
type ItemError[T any] struct {
	Item T
	Err  error
}

func (e *ItemError[T]) Error() string {
	return fmt.Sprintf("process %v: %v", e.Item, e.Err)
}

func (e *ItemError[T]) Unwrap() error {
	return e.Err
}

// Process runs process for every item on at most workerCount goroutines.
// The first failure cancels the remaining work and is returned as *ItemError.
func Process[T any](ctx context.Context, workerCount int, items []T, process func(context.Context, T) error) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(items) {
		workerCount = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan T)
	var (
		once     sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if ctx.Err() != nil {
					continue
				}
				if err := process(ctx, item); err != nil {
					fail(&ItemError[T]{Item: item, Err: err})
				}
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- item:
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
