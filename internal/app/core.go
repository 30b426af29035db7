package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"datadesk/internal/domain"
	"datadesk/internal/secret"
	"datadesk/internal/service"
	"datadesk/internal/storage"
)

// Config is the process configuration resolved by the CLI.
type Config struct {
	DataDir  string
	Defaults domain.Settings
	// Editor overrides $EDITOR for external field editing.
	Editor string
}

// DefaultDataDir returns ~/.local/share/datadesk.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "datadesk")
}

// Core is the storage and service graph shared by the desktop app, the
// MCP server and the CLI.
type Core struct {
	DataDir    string
	DB         *storage.DB
	Store      *storage.SettingsStore
	PersistLog *storage.PersistLogStore
	Approvals  *storage.ApprovalStore
	Secrets    secret.SecretStore

	Records  *service.RecordService
	Settings *service.SettingsService
	Reload   *service.ReloadService
}

// OpenCore opens the app database under cfg.DataDir and builds the services.
func OpenCore(cfg Config, emitter service.EventEmitter) (*Core, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	defaults := cfg.Defaults
	if defaults.Backend == "" {
		defaults = domain.DefaultSettings()
	}

	db, err := storage.New(filepath.Join(dataDir, "datadesk.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Core{
		DataDir:    dataDir,
		DB:         db,
		Store:      storage.NewSettingsStore(db, defaults),
		PersistLog: storage.NewPersistLogStore(db),
		Approvals:  storage.NewApprovalStore(db),
		Secrets:    secret.Default(),
	}
	c.Records = service.NewRecordService(c.Store, c.Secrets, c.PersistLog, emitter)
	c.Settings = service.NewSettingsService(c.Store, c.Secrets, emitter)
	c.Reload = service.NewReloadService(c.Records)
	return c, nil
}

// StartReload arms the auto-reload watchers and re-arms them on every
// settings save.
func (c *Core) StartReload(ctx context.Context) {
	c.Settings.OnChange(c.Reload.Restart)
	st, err := c.Settings.Load()
	if err != nil {
		log.Printf("[RELOAD] load settings: %v", err)
		return
	}
	c.Reload.Restart(ctx, st)
}

// Close stops the watchers and closes the gateway and the database.
func (c *Core) Close() error {
	c.Reload.Stop()
	if err := c.Records.Close(); err != nil {
		log.Printf("[APP] close gateway: %v", err)
	}
	return c.DB.Close()
}
