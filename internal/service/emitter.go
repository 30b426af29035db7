package service

import "context"

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// Events pushed to the page.
const (
	EventRecordsChanged   = "records:changed"
	EventLoading          = "records:loading"
	EventToast            = "toast"
	EventSettingsRequired = "settings:required"
	EventSettingsChanged  = "settings:changed"
)

// Toast variants.
const (
	ToastDefault     = "default"
	ToastDestructive = "destructive"
)

// EventEmitter is implemented by the App through wailsRuntime.EventsEmit,
// and by MockEmitter in tests.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Toast is the payload of a "toast" event.
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// Toasts returns the emitted toasts in order.
func (m *MockEmitter) Toasts() []Toast {
	var out []Toast
	for _, e := range m.Events {
		if t, ok := e.Data.(Toast); ok && e.Event == EventToast {
			out = append(out, t)
		}
	}
	return out
}

// NoopEmitter drops every event. Used by the CLI and the MCP server.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}
