package service

import (
	"context"
	"sync"
)

// ExportedBusyGuard is an exported alias so _test packages can test the guard.
type ExportedBusyGuard = busyGuard

// ─────────────────────────────────────────────────────────────
// busyGuard: the shared loading flag
// ─────────────────────────────────────────────────────────────

// busyGuard lets at most one operation per key run at a time. RecordService
// holds a single key for every network call, which is what the page shows as
// the loading state.
type busyGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
	wg   sync.WaitGroup
}

// TryLock marks key as held. Returns false if it already is.
func (g *busyGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = make(map[string]struct{})
	}
	if _, ok := g.held[key]; ok {
		return false
	}
	g.held[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *busyGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	g.wg.Done()
}

// Held reports whether key is currently held.
func (g *busyGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

// WaitAll blocks until every held key is released or ctx is cancelled.
func (g *busyGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
