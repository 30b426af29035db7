package app

import (
	"context"
	"encoding/base64"
	"os/exec"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"datadesk/internal/livefile"
	"datadesk/internal/service"
	"datadesk/internal/terminal"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	cfg     Config
	core    *Core
	emitter *wailsEmitter

	term      *terminal.Manager
	live      *livefile.Watcher
	approvals *approvalWatcher

	// Field currently open in the external editor
	fieldMu      sync.Mutex
	editingField string
	fieldPath    string
}

// New opens storage and builds the services. Events are dropped until
// Startup binds the Wails context.
func New(cfg Config) (*App, error) {
	em := &wailsEmitter{}
	core, err := OpenCore(cfg, em)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, core: core, emitter: em}, nil
}

// WindowSize returns the saved window dimensions.
func (a *App) WindowSize() service.WindowSize {
	return a.core.Settings.LoadWindowSize()
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.emitter.bind(ctx)

	// macOS: disable "Press and Hold" so key repeat works in the embedded editor.
	exec.Command("defaults", "write", "com.wails.datadesk", "ApplePressAndHoldEnabled", "-bool", "false").Run()
	exec.Command("defaults", "write", "-g", "ApplePressAndHoldEnabled", "-bool", "false").Run()

	// Embedded terminal: PTY output → base64 → frontend event
	a.term = terminal.NewWithEditor(a.cfg.Editor,
		func(data []byte) {
			wailsRuntime.EventsEmit(ctx, "terminal:data", base64.StdEncoding.EncodeToString(data))
		},
		a.onEditorExit,
	)

	live, err := livefile.New(a.onFieldSaved)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to create file watcher: %v", err)
	}
	a.live = live

	a.core.StartReload(ctx)

	a.approvals = newApprovalWatcher(ctx, a.core.Approvals, a.emitter)
	a.approvals.Start()

	// First paint: load right away when a source is configured.
	go func() {
		if err := a.core.Records.Load(ctx); err != nil {
			wailsRuntime.LogInfof(ctx, "[APP] initial load: %v", err)
		}
	}()
}

// BeforeClose saves the window size.
func (a *App) BeforeClose(ctx context.Context) bool {
	w, h := wailsRuntime.WindowGetSize(ctx)
	if err := a.core.Settings.SaveWindowSize(w, h); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
	}
	return false
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.approvals != nil {
		a.approvals.Stop()
	}
	if a.term != nil {
		a.term.Close()
	}
	if a.live != nil {
		a.live.Close()
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	a.core.Records.Wait(waitCtx)
	a.core.Close()
}

// ── Emitter ───────────────────────────────────────────────

// wailsEmitter forwards service events to the page. It always emits on the
// Wails context; the caller's context may not carry the runtime.
type wailsEmitter struct {
	mu  sync.RWMutex
	ctx context.Context
}

func (e *wailsEmitter) bind(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
}

func (e *wailsEmitter) Emit(_ context.Context, event string, data any) {
	e.mu.RLock()
	ctx := e.ctx
	e.mu.RUnlock()
	if ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(ctx, event, data)
}
