// Package workerpool bounds how many CPU-heavy tasks run at once.
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent Do calls to a fixed number of slots and tracks
// background goroutines started with Go so shutdown can wait for them.
type Pool struct {
	sem  *semaphore.Weighted
	size int
	wg   sync.WaitGroup
}

// New はsize個のスロットを持つPoolを生成します。size<=0の場合はCPU数を使用します。
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Do waits for a free slot and runs fn on the calling goroutine.
// If ctx ends while waiting, fn is not run and ctx.Err() is returned.
// A panic in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked", "panic", r)
			err = fmt.Errorf("workerpool: task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Go runs fn on a new goroutine. It does not take a slot itself; fn is
// expected to call Do for the heavy part.
func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked", "panic", r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
