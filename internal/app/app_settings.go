package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"datadesk/internal/domain"
	"datadesk/internal/storage"
)

// ============================================================
// Settings
// ============================================================

func (a *App) GetSettings() (domain.Settings, error) {
	return a.core.Settings.Load()
}

// SaveSettings validates and stores the settings form, then re-arms the
// auto-reload watchers.
func (a *App) SaveSettings(st domain.Settings) error {
	if err := a.core.Settings.Save(a.ctx, st); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "[SaveSettings] %v", err)
		return err
	}
	return nil
}

// SetTablePassword stores the managed-table password; empty deletes it.
func (a *App) SetTablePassword(password string) error {
	return a.core.Settings.SetTablePassword(password)
}

// ListPersistLog returns the most recent persist outcomes, newest first.
func (a *App) ListPersistLog(limit int) ([]domain.PersistLogEntry, error) {
	return a.core.PersistLog.ListPersistLog(limit)
}

// ============================================================
// MCP approvals
// ============================================================

func (a *App) ListPendingApprovals() ([]storage.Approval, error) {
	return a.core.Approvals.ListPending()
}

// ResolveApproval answers a pending request from the standalone MCP server.
func (a *App) ResolveApproval(id string, approved bool) error {
	return a.core.Approvals.Resolve(id, approved)
}
