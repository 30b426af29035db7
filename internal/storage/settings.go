package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"datadesk/internal/domain"
)

// Fixed keys in app_settings.
const (
	KeyBackend             = "backend"
	KeyLoadURL             = "webhook_load_url"
	KeySaveURL             = "webhook_save_url"
	KeyTableDriver         = "table_driver"
	KeyTableHost           = "table_host"
	KeyTablePort           = "table_port"
	KeyTableDatabase       = "table_database"
	KeyTableUsername       = "table_username"
	KeyTableSSLMode        = "table_ssl_mode"
	KeyTableName           = "table_name"
	KeyTableOrderBy        = "table_order_by"
	KeyTableIDField        = "table_id_field"
	KeyFilePath            = "file_path"
	KeyReloadSchedule      = "reload_schedule"
	KeyReloadWatchFile     = "reload_watch_file"
	KeyCoerceInlineNumbers = "coerce_inline_numbers"
)

// SettingsStore keeps user settings as key/value rows in app_settings.
type SettingsStore struct {
	db       *DB
	defaults domain.Settings
}

// NewSettingsStore creates a SettingsStore. defaults fill keys that were never saved.
func NewSettingsStore(db *DB, defaults domain.Settings) *SettingsStore {
	return &SettingsStore{db: db, defaults: defaults}
}

// Get returns the raw value for key and whether it exists.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.conn.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// LoadSettings reads every known key, falling back to the defaults.
func (s *SettingsStore) LoadSettings() (domain.Settings, error) {
	out := s.defaults
	rows, err := s.db.conn.Query(`SELECT key, value FROM app_settings`)
	if err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return out, fmt.Errorf("scan setting: %w", err)
		}
		applySetting(&out, key, value)
	}
	return out, rows.Err()
}

// SaveSettings writes every field in a single transaction.
func (s *SettingsStore) SaveSettings(st domain.Settings) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for key, value := range settingValues(st) {
		if _, err := tx.Exec(
			`INSERT INTO app_settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func settingValues(st domain.Settings) map[string]string {
	port := ""
	if st.Table.Port != 0 {
		port = strconv.Itoa(st.Table.Port)
	}
	return map[string]string{
		KeyBackend:             string(st.Backend),
		KeyLoadURL:             st.LoadURL,
		KeySaveURL:             st.SaveURL,
		KeyTableDriver:         string(st.Table.Driver),
		KeyTableHost:           st.Table.Host,
		KeyTablePort:           port,
		KeyTableDatabase:       st.Table.Database,
		KeyTableUsername:       st.Table.Username,
		KeyTableSSLMode:        st.Table.SSLMode,
		KeyTableName:           st.Table.Table,
		KeyTableOrderBy:        st.Table.OrderBy,
		KeyTableIDField:        st.Table.IDField,
		KeyFilePath:            st.File.Path,
		KeyReloadSchedule:      st.Reload.Schedule,
		KeyReloadWatchFile:     st.Reload.WatchFile,
		KeyCoerceInlineNumbers: strconv.FormatBool(st.CoerceInlineNumbers),
	}
}

func applySetting(st *domain.Settings, key, value string) {
	switch key {
	case KeyBackend:
		if value != "" {
			st.Backend = domain.Backend(value)
		}
	case KeyLoadURL:
		st.LoadURL = value
	case KeySaveURL:
		st.SaveURL = value
	case KeyTableDriver:
		if value != "" {
			st.Table.Driver = domain.DatabaseDriver(value)
		}
	case KeyTableHost:
		st.Table.Host = value
	case KeyTablePort:
		st.Table.Port, _ = strconv.Atoi(value)
	case KeyTableDatabase:
		st.Table.Database = value
	case KeyTableUsername:
		st.Table.Username = value
	case KeyTableSSLMode:
		st.Table.SSLMode = value
	case KeyTableName:
		if value != "" {
			st.Table.Table = value
		}
	case KeyTableOrderBy:
		st.Table.OrderBy = value
	case KeyTableIDField:
		if value != "" {
			st.Table.IDField = value
		}
	case KeyFilePath:
		st.File.Path = value
	case KeyReloadSchedule:
		st.Reload.Schedule = value
	case KeyReloadWatchFile:
		st.Reload.WatchFile = value
	case KeyCoerceInlineNumbers:
		st.CoerceInlineNumbers, _ = strconv.ParseBool(value)
	}
}

var _ domain.SettingsStore = (*SettingsStore)(nil)
