package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
)

func TestLoadConfig_WritesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datadesk")

	v, err := loadConfig(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	c := appConfig(v, "")
	assert.Equal(t, domain.BackendWebhook, c.Defaults.Backend)
	assert.Equal(t, "records", c.Defaults.Table.Table)
	assert.NotEmpty(t, c.DataDir)
}

func TestLoadConfig_FileAndFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
backend: jsonfile
data_dir: /from/config
table:
  driver: postgres
  name: plants
`), 0o644))

	v, err := loadConfig(dir)
	require.NoError(t, err)

	c := appConfig(v, "")
	assert.Equal(t, domain.BackendJSONFile, c.Defaults.Backend)
	assert.Equal(t, domain.DatabaseDriverPostgres, c.Defaults.Table.Driver)
	assert.Equal(t, "plants", c.Defaults.Table.Table)
	assert.Equal(t, "created_at", c.Defaults.Table.OrderBy)
	assert.Equal(t, "/from/config", c.DataDir)

	assert.Equal(t, "/from/flag", appConfig(v, "/from/flag").DataDir)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("DATADESK_TABLE_ID_FIELD", "uuid")
	v, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "uuid", appConfig(v, "").Defaults.Table.IDField)
}

func TestPrintTable(t *testing.T) {
	records := []domain.Record{
		domain.NewRecord(domain.FieldOf("id", "p1"), domain.FieldOf("plant_name", "Plant A"), domain.FieldOf("capacity", 12)),
		domain.NewRecord(domain.FieldOf("id", "p2"), domain.FieldOf("plant_name", "Plant B\nnorth"), domain.FieldOf("capacity", 30)),
	}
	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, records))

	out := buf.String()
	assert.Contains(t, out, "PLANT NAME")
	assert.Contains(t, out, "Plant B north")
	assert.NotContains(t, out, "p1", "system fields are hidden")

	buf.Reset()
	require.NoError(t, printTable(&buf, nil))
	assert.Equal(t, "No records.\n", buf.String())
}

func TestParseHelpers(t *testing.T) {
	_, err := parseIndex("-1")
	assert.Error(t, err)
	i, err := parseIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	rec, err := parseRecord(`{"name":"x","capacity":2}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "capacity"}, rec.Keys())
	_, err = parseRecord(`[1]`)
	assert.Error(t, err)
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmn", 10))
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestCommands_JSONFileRoundTrip(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	file := filepath.Join(t.TempDir(), "plants.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"id":"p1","name":"Plant A","capacity":12}]`), 0o644))

	global := []string{"--config-dir", configDir, "--data-dir", dataDir}

	out := run(t, append(global, "settings", "set", "--backend", "jsonfile", "--file", file)...)
	assert.Contains(t, out, "Settings saved")

	out = run(t, append(global, "records", "create", `{"name":"Plant B","capacity":30}`)...)
	assert.Contains(t, out, "Plant B")

	out = run(t, append(global, "records", "list", "--json")...)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Plant B", listed[1]["name"])

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Plant B")
}
