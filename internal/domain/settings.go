package domain

// Backend selects the gateway variant.
type Backend string

const (
	BackendWebhook  Backend = "webhook"
	BackendTable    Backend = "table"
	BackendJSONFile Backend = "jsonfile"
)

// DatabaseDriver represents the type of database engine behind a managed table.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// TableSettings points the table backend at one table or collection.
// The password is kept in the SecretStore, never here.
type TableSettings struct {
	Driver   DatabaseDriver `json:"driver"`
	Host     string         `json:"host"` // hostname, URI (mongodb) or file path (sqlite)
	Port     int            `json:"port"`
	Database string         `json:"database"`
	Username string         `json:"username"`
	SSLMode  string         `json:"sslMode"`
	Table    string         `json:"table"`
	OrderBy  string         `json:"orderBy"`
	IDField  string         `json:"idField"`
}

// FileSettings points the jsonfile backend at a file on disk.
type FileSettings struct {
	Path string `json:"path"`
}

// ReloadSettings controls automatic reloads.
type ReloadSettings struct {
	Schedule  string `json:"schedule"`  // cron expression, e.g. "@every 5m"
	WatchFile string `json:"watchFile"` // reload when this file changes
}

// Settings is everything the user can change from the settings form.
type Settings struct {
	Backend             Backend        `json:"backend"`
	LoadURL             string         `json:"loadUrl"`
	SaveURL             string         `json:"saveUrl"`
	Table               TableSettings  `json:"table"`
	File                FileSettings   `json:"file"`
	Reload              ReloadSettings `json:"reload"`
	CoerceInlineNumbers bool           `json:"coerceInlineNumbers"`
}

// Table defaults.
const (
	DefaultTable   = "records"
	DefaultOrderBy = "created_at"
	DefaultIDField = "id"
)

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		Backend: BackendWebhook,
		Table: TableSettings{
			Driver:  DatabaseDriverSQLite,
			Table:   DefaultTable,
			OrderBy: DefaultOrderBy,
			IDField: DefaultIDField,
		},
	}
}

// SettingsStore persists Settings.
type SettingsStore interface {
	LoadSettings() (Settings, error)
	SaveSettings(s Settings) error
}

// PersistLogEntry records the outcome of one persist call.
type PersistLogEntry struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Action    Action `json:"action"`
	Backend   string `json:"backend"`
	Status    string `json:"status"` // ok | fallback | failed
	Error     string `json:"error"`
	CreatedAt string `json:"createdAt"`
}

// PersistLogStore keeps the persist audit trail.
type PersistLogStore interface {
	AppendPersistLog(e *PersistLogEntry) error
	ListPersistLog(limit int) ([]PersistLogEntry, error)
}
