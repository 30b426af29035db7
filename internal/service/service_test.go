package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/service"
)

// ─────────────────────────────────────────────────────────────
// busyGuard tests
// ─────────────────────────────────────────────────────────────

func TestBusyGuard_TryLock(t *testing.T) {
	var g service.ExportedBusyGuard

	require.True(t, g.TryLock("records"), "first TryLock")
	assert.False(t, g.TryLock("records"), "second TryLock for the same key")
	assert.True(t, g.Held("records"))
	require.True(t, g.TryLock("other"), "different key")

	g.Unlock("records")
	g.Unlock("other")
	assert.False(t, g.Held("records"))

	require.True(t, g.TryLock("records"), "TryLock after unlock")
	g.Unlock("records")
}

func TestBusyGuard_WaitAll(t *testing.T) {
	var g service.ExportedBusyGuard
	require.True(t, g.TryLock("records"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("records")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventRecordsChanged, nil)
	m.Emit(ctx, service.EventToast, service.Toast{Title: "Saved", Variant: service.ToastDefault})
	m.Emit(ctx, service.EventRecordsChanged, nil)

	require.Len(t, m.Events, 3)
	assert.Equal(t, 2, m.Count(service.EventRecordsChanged))
	assert.Equal(t, []service.Toast{{Title: "Saved", Variant: service.ToastDefault}}, m.Toasts())
}
