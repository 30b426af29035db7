package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"datadesk/internal/dbclient"
	"datadesk/internal/domain"
)

// Gateway loads the whole record list and persists single mutations.
type Gateway interface {
	// Load returns every record the backend holds, in backend order.
	Load(ctx context.Context) ([]domain.Record, error)

	// Persist applies one mutation and returns the record as the backend acknowledged it.
	Persist(ctx context.Context, m domain.Mutation) (Result, error)

	// Close releases connections held by the gateway.
	Close() error
}

// Result is the outcome of a successful Persist.
type Result struct {
	Record   domain.Record
	Fallback bool // true when only the fire-and-forget retry went through
}

// TableOpener opens a table client for the managed-table backend.
type TableOpener func(cfg domain.TableSettings, password string) (TableClient, error)

// Config selects and configures a gateway variant. It is built from
// domain.Settings by the caller and passed in explicitly.
type Config struct {
	Backend       domain.Backend
	LoadURL       string
	SaveURL       string
	Table         domain.TableSettings
	TablePassword string
	File          domain.FileSettings

	// HTTPClient is used by the webhook backend; nil means a 30s-timeout client.
	HTTPClient *http.Client
	// OpenTable overrides how the table backend connects; nil means dbclient.
	OpenTable TableOpener
}

// ConfigFromSettings copies the backend-relevant parts of s into a Config.
func ConfigFromSettings(s domain.Settings, tablePassword string) Config {
	return Config{
		Backend:       s.Backend,
		LoadURL:       s.LoadURL,
		SaveURL:       s.SaveURL,
		Table:         s.Table,
		TablePassword: tablePassword,
		File:          s.File,
	}
}

// New builds the gateway variant named by cfg.Backend.
func New(cfg Config) (Gateway, error) {
	switch cfg.Backend {
	case domain.BackendWebhook, "":
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return NewWebhook(cfg.LoadURL, cfg.SaveURL, client), nil
	case domain.BackendTable:
		if cfg.Table.Host == "" {
			return nil, fmt.Errorf("table backend: %w", ErrNotConfigured)
		}
		open := cfg.OpenTable
		if open == nil {
			open = openConnector
		}
		client, err := open(cfg.Table, cfg.TablePassword)
		if err != nil {
			return nil, &RemoteStoreError{Op: "connect", Err: err}
		}
		return NewTable(client, cfg.Table), nil
	case domain.BackendJSONFile:
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("jsonfile backend: %w", ErrNotConfigured)
		}
		return NewJSONFile(cfg.File.Path), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

func openConnector(cfg domain.TableSettings, password string) (TableClient, error) {
	conn, err := dbclient.NewConnector(cfg, password)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
