package app

import (
	"datadesk/internal/editor"
	"datadesk/internal/service"
)

// ============================================================
// Records
// ============================================================

// GetView returns the whole page render model.
func (a *App) GetView() service.PageView {
	return a.core.Records.View()
}

// LoadRecords reloads the list from the configured backend.
func (a *App) LoadRecords() error {
	return a.core.Records.Load(a.ctx)
}

// ClearRecords empties the table without touching the backend.
func (a *App) ClearRecords() error {
	return a.core.Records.Clear(a.ctx)
}

func (a *App) SetFilter(filter string) {
	a.core.Records.SetFilter(a.ctx, filter)
}

func (a *App) ToggleSort(column string) {
	a.core.Records.ToggleSort(a.ctx, column)
}

func (a *App) ClearSort() {
	a.core.Records.ClearSort(a.ctx)
}

// DeleteRecord deletes the record at its source index.
func (a *App) DeleteRecord(index int) error {
	return a.core.Records.Delete(a.ctx, index)
}

// ── Inline cell edit ──────────────────────────────────────

func (a *App) BeginCellEdit(index int, column string) error {
	return a.core.Records.BeginCellEdit(a.ctx, index, column)
}

func (a *App) SetCellText(text string) {
	a.core.Records.SetCellText(text)
}

// CommitCellEdit persists the open cell edit (Enter or blur).
func (a *App) CommitCellEdit() error {
	return a.core.Records.CommitCellEdit(a.ctx)
}

// CancelCellEdit drops the open cell edit (Escape).
func (a *App) CancelCellEdit() {
	a.core.Records.CancelCellEdit(a.ctx)
}

// ── Editor modal ──────────────────────────────────────────

// OpenCreate opens an empty form. columns are used when the list is empty.
func (a *App) OpenCreate(columns []string) error {
	return a.core.Records.OpenCreate(a.ctx, columns...)
}

func (a *App) OpenEdit(index int) error {
	return a.core.Records.OpenEdit(a.ctx, index)
}

func (a *App) GetEditor() editor.State {
	return a.core.Records.Editor()
}

func (a *App) SetEditorField(name, text string) error {
	return a.core.Records.SetEditorField(name, text)
}

func (a *App) SaveEditor() error {
	return a.core.Records.SaveEditor(a.ctx)
}

func (a *App) CancelEditor() {
	a.CloseFieldEditor()
	a.core.Records.CancelEditor(a.ctx)
}
