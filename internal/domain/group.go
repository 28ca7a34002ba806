package domain

import (
	"context"
	"sync"
)

// Group tracks domain loop goroutines and provides a safe shutdown boundary
// so we never call WaitGroup.Add concurrently with Wait.
type Group struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// Go starts a worker if the group is not stopping.
func (g *Group) Go(fn func()) bool {
	if fn == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopping {
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

// StopAndWait prevents new workers from being started and waits for all
// current workers to exit, bounded by ctx. Loops must be Closed first or
// this will wait until ctx expires.
func (g *Group) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
