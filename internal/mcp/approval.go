package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"datadesk/internal/storage"
)

// Approver asks a human before a destructive tool runs.
type Approver interface {
	Request(ctx context.Context, tool, description string) (bool, error)
}

// DenyAll rejects every request.
type DenyAll struct{}

func (DenyAll) Request(_ context.Context, tool, _ string) (bool, error) {
	return false, fmt.Errorf("action rejected: %s needs approval and none is configured", tool)
}

// AutoApprove accepts every request. Used by `datadesk mcp --auto-approve`.
type AutoApprove struct{}

func (AutoApprove) Request(context.Context, string, string) (bool, error) { return true, nil }

// ApprovalBackend is the shared table the desktop app resolves approvals in.
type ApprovalBackend interface {
	Create(a storage.Approval) error
	Status(id string) (string, bool, error)
	Delete(id string) error
}

// StoreApprover writes a pending approval to SQLite and polls until the
// desktop app resolves it or the timeout passes.
type StoreApprover struct {
	store    ApprovalBackend
	timeout  time.Duration
	interval time.Duration
}

// NewStoreApprover creates a StoreApprover with a 2 minute timeout.
func NewStoreApprover(store ApprovalBackend) *StoreApprover {
	return &StoreApprover{store: store, timeout: 120 * time.Second, interval: 500 * time.Millisecond}
}

// WithTimeout sets how long Request waits and how often it polls.
func (q *StoreApprover) WithTimeout(timeout, interval time.Duration) *StoreApprover {
	q.timeout, q.interval = timeout, interval
	return q
}

func (q *StoreApprover) Request(ctx context.Context, tool, description string) (bool, error) {
	id := uuid.New().String()
	if err := q.store.Create(storage.Approval{ID: id, Tool: tool, Description: description}); err != nil {
		return false, err
	}
	defer q.store.Delete(id)

	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, found, err := q.store.Status(id)
			if err != nil || !found {
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return true, nil
			case storage.ApprovalRejected:
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-deadline.C:
			return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
