package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"datadesk/internal/app"
	"datadesk/internal/domain"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "DATADESK"

	cfgKeyDataDir      = "data_dir"
	cfgKeyEditor       = "editor"
	cfgKeyBackend      = "backend"
	cfgKeyTableDriver  = "table.driver"
	cfgKeyTableName    = "table.name"
	cfgKeyTableOrderBy = "table.order_by"
	cfgKeyTableIDField = "table.id_field"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# datadesk configuration
#
# Backend settings chosen in the app (webhook URLs, table, file) are stored
# in the app database; the values here only seed them on first start.

# Backend used before anything is saved: webhook | table | jsonfile
backend: webhook

# Managed-table defaults
table:
  driver: sqlite
  name: records
  order_by: created_at
  id_field: id

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# External editor for long fields (default: $EDITOR, then nvim)
# editor: nvim
`

// defaultConfigDir returns $XDG_CONFIG_HOME/datadesk or ~/.config/datadesk.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "datadesk")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "datadesk")
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. A missing file is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	defaults := domain.DefaultSettings()
	v := viper.New()
	v.SetDefault(cfgKeyBackend, string(defaults.Backend))
	v.SetDefault(cfgKeyTableDriver, string(defaults.Table.Driver))
	v.SetDefault(cfgKeyTableName, defaults.Table.Table)
	v.SetDefault(cfgKeyTableOrderBy, defaults.Table.OrderBy)
	v.SetDefault(cfgKeyTableIDField, defaults.Table.IDField)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// appConfig turns the loaded config into the app's Config. flagDataDir wins
// over the data_dir key.
func appConfig(v *viper.Viper, flagDataDir string) app.Config {
	defaults := domain.DefaultSettings()
	defaults.Backend = domain.Backend(v.GetString(cfgKeyBackend))
	defaults.Table.Driver = domain.DatabaseDriver(v.GetString(cfgKeyTableDriver))
	defaults.Table.Table = v.GetString(cfgKeyTableName)
	defaults.Table.OrderBy = v.GetString(cfgKeyTableOrderBy)
	defaults.Table.IDField = v.GetString(cfgKeyTableIDField)

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = v.GetString(cfgKeyDataDir)
	}
	if dataDir == "" {
		dataDir = app.DefaultDataDir()
	}
	return app.Config{
		DataDir:  dataDir,
		Defaults: defaults,
		Editor:   v.GetString(cfgKeyEditor),
	}
}
