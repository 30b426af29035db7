package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"datadesk/internal/livefile"
)

// ============================================================
// External field editor ($EDITOR in an embedded terminal)
// ============================================================

// TerminalWrite sends input from xterm.js to the PTY.
func (a *App) TerminalWrite(data string) error {
	return a.term.Write(data)
}

// TerminalResize resizes the PTY.
func (a *App) TerminalResize(cols, rows int) error {
	return a.term.Resize(uint16(cols), uint16(rows))
}

// OpenFieldInEditor writes the field's current text to a temp file and
// opens it in $EDITOR. Saves stream back into the form while the editor runs.
func (a *App) OpenFieldInEditor(field string) error {
	text, ok := a.core.Records.EditorValue(field)
	if !ok {
		return fmt.Errorf("field %q is not in the open form", field)
	}

	dir := filepath.Join(a.core.DataDir, "fields")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create fields dir: %w", err)
	}
	f, err := os.CreateTemp(dir, sanitize(field)+"-*.txt")
	if err != nil {
		return fmt.Errorf("create field file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write field file: %w", err)
	}
	f.Close()

	a.CloseFieldEditor()

	a.fieldMu.Lock()
	a.editingField = field
	a.fieldPath = f.Name()
	a.fieldMu.Unlock()

	if a.live != nil {
		if err := a.live.Watch(field, f.Name()); err != nil {
			wailsRuntime.LogErrorf(a.ctx, "[OpenFieldInEditor] watch %s: %v", f.Name(), err)
		}
	}
	return a.term.Open(f.Name())
}

// CloseFieldEditor kills the editor session, keeping whatever was saved so far.
func (a *App) CloseFieldEditor() {
	if a.term != nil {
		a.term.Close()
	}
	a.finishField(false)
}

// onFieldSaved pushes a save from the running editor into the form.
func (a *App) onFieldSaved(field, content string) {
	a.fieldMu.Lock()
	current := a.editingField == field
	a.fieldMu.Unlock()
	if current {
		a.applyField(field, content)
	}
}

// onEditorExit is called when the editor process exits.
func (a *App) onEditorExit(path string) {
	a.fieldMu.Lock()
	current := a.fieldPath == path
	a.fieldMu.Unlock()
	if current {
		a.finishField(true)
	}
	wailsRuntime.EventsEmit(a.ctx, "terminal:exit", map[string]string{"path": path})
}

// finishField stops watching the temp file and removes it. With apply set,
// the final file content is written into the field first.
func (a *App) finishField(apply bool) {
	a.fieldMu.Lock()
	field, path := a.editingField, a.fieldPath
	a.editingField, a.fieldPath = "", ""
	a.fieldMu.Unlock()
	if field == "" {
		return
	}

	if a.live != nil {
		a.live.Unwatch(field)
	}
	if apply {
		if content, err := livefile.ReadContent(path); err == nil {
			a.applyField(field, content)
		}
	}
	os.Remove(path)
}

func (a *App) applyField(field, content string) {
	if err := a.core.Records.ReplaceEditorField(a.ctx, field, content); err != nil {
		wailsRuntime.LogInfof(a.ctx, "[FieldEditor] form closed before %s was applied", field)
		return
	}
	wailsRuntime.EventsEmit(a.ctx, "editor:field-updated", map[string]string{
		"field":   field,
		"content": content,
	})
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
