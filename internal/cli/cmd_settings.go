package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datadesk/internal/app"
	"datadesk/internal/domain"
	"datadesk/internal/secret"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the backend settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(func(core *app.Core) error {
			st, err := core.Settings.Load()
			if err != nil {
				return err
			}
			pw, err := core.Secrets.Get(secret.TablePasswordKey)
			if err != nil {
				return fmt.Errorf("read table password: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), struct {
				domain.Settings
				TablePasswordSet bool `json:"tablePasswordSet"`
			}{st, len(pw) > 0})
		})
	},
}

var settingsFlags struct {
	backend       string
	loadURL       string
	saveURL       string
	file          string
	schedule      string
	watchFile     string
	driver        string
	host          string
	port          int
	database      string
	username      string
	sslMode       string
	table         string
	orderBy       string
	idField       string
	password      string
	coerceNumbers bool
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the settings named by flags; others are kept",
	Example: `  datadesk settings set --backend webhook --load-url https://hooks.example.com/load --save-url https://hooks.example.com/save
  datadesk settings set --backend jsonfile --file ~/plants.json
  datadesk settings set --backend table --driver postgres --host localhost --database app --username app --password secret`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringVar(&settingsFlags.backend, "backend", "", "webhook | table | jsonfile")
	f.StringVar(&settingsFlags.loadURL, "load-url", "", "webhook load URL")
	f.StringVar(&settingsFlags.saveURL, "save-url", "", "webhook save URL")
	f.StringVar(&settingsFlags.file, "file", "", "JSON file for the jsonfile backend")
	f.StringVar(&settingsFlags.schedule, "schedule", "", `auto-reload schedule, e.g. "@every 5m" (empty disables)`)
	f.StringVar(&settingsFlags.watchFile, "watch-file", "", "reload when this file changes")
	f.StringVar(&settingsFlags.driver, "driver", "", "table driver: sqlite | mysql | postgres | mongodb")
	f.StringVar(&settingsFlags.host, "host", "", "table host, mongodb URI or sqlite path")
	f.IntVar(&settingsFlags.port, "port", 0, "table port")
	f.StringVar(&settingsFlags.database, "database", "", "table database")
	f.StringVar(&settingsFlags.username, "username", "", "table username")
	f.StringVar(&settingsFlags.sslMode, "ssl-mode", "", "postgres sslmode")
	f.StringVar(&settingsFlags.table, "table", "", "table or collection name")
	f.StringVar(&settingsFlags.orderBy, "order-by", "", "column the table is loaded in order of")
	f.StringVar(&settingsFlags.idField, "id-field", "", "column identifying a row")
	f.StringVar(&settingsFlags.password, "password", "", "table password (stored in the secret store)")
	f.BoolVar(&settingsFlags.coerceNumbers, "coerce-numbers", false, "keep inline edits of numeric cells numeric")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	return withCore(func(core *app.Core) error {
		st, err := core.Settings.Load()
		if err != nil {
			return err
		}

		f := cmd.Flags()
		str := func(name string, dst *string, v string) {
			if f.Changed(name) {
				*dst = v
			}
		}
		if f.Changed("backend") {
			st.Backend = domain.Backend(settingsFlags.backend)
		}
		if f.Changed("driver") {
			st.Table.Driver = domain.DatabaseDriver(settingsFlags.driver)
		}
		if f.Changed("port") {
			st.Table.Port = settingsFlags.port
		}
		if f.Changed("coerce-numbers") {
			st.CoerceInlineNumbers = settingsFlags.coerceNumbers
		}
		str("load-url", &st.LoadURL, settingsFlags.loadURL)
		str("save-url", &st.SaveURL, settingsFlags.saveURL)
		str("file", &st.File.Path, settingsFlags.file)
		str("schedule", &st.Reload.Schedule, settingsFlags.schedule)
		str("watch-file", &st.Reload.WatchFile, settingsFlags.watchFile)
		str("host", &st.Table.Host, settingsFlags.host)
		str("database", &st.Table.Database, settingsFlags.database)
		str("username", &st.Table.Username, settingsFlags.username)
		str("ssl-mode", &st.Table.SSLMode, settingsFlags.sslMode)
		str("table", &st.Table.Table, settingsFlags.table)
		str("order-by", &st.Table.OrderBy, settingsFlags.orderBy)
		str("id-field", &st.Table.IDField, settingsFlags.idField)

		if err := core.Settings.Save(cmd.Context(), st); err != nil {
			return err
		}
		if f.Changed("password") {
			if err := core.Settings.SetTablePassword(settingsFlags.password); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
		return nil
	})
}
