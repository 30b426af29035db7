package app

import (
	"context"
	"sync"
	"time"

	"datadesk/internal/service"
	"datadesk/internal/storage"
)

// EventApprovalRequired asks the page to show an approve/reject prompt.
const EventApprovalRequired = "mcp:approval-required"

type pendingLister interface {
	ListPending() ([]storage.Approval, error)
}

// approvalWatcher polls the approvals table written by the standalone MCP
// process and emits each pending request to the page once.
type approvalWatcher struct {
	ctx      context.Context
	store    pendingLister
	emitter  service.EventEmitter
	interval time.Duration

	mu      sync.Mutex
	emitted map[string]bool
	stopCh  chan struct{}
	once    sync.Once
}

func newApprovalWatcher(ctx context.Context, store pendingLister, emitter service.EventEmitter) *approvalWatcher {
	return &approvalWatcher{
		ctx:      ctx,
		store:    store,
		emitter:  emitter,
		interval: 2 * time.Second,
		emitted:  map[string]bool{},
		stopCh:   make(chan struct{}),
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *approvalWatcher) Start() {
	go w.pollLoop()
}

// Stop terminates the polling loop.
func (w *approvalWatcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
}

func (w *approvalWatcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *approvalWatcher) check() {
	pending, err := w.store.ListPending()
	if err != nil {
		return
	}

	w.mu.Lock()
	seen := make(map[string]bool, len(pending))
	var fresh []storage.Approval
	for _, a := range pending {
		seen[a.ID] = true
		if !w.emitted[a.ID] {
			w.emitted[a.ID] = true
			fresh = append(fresh, a)
		}
	}
	// Forget requests that were resolved or deleted by the MCP process.
	for id := range w.emitted {
		if !seen[id] {
			delete(w.emitted, id)
		}
	}
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(w.ctx, EventApprovalRequired, a)
	}
}
