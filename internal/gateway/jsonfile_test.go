package gateway_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
	"datadesk/internal/gateway"
)

func TestJSONFileGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads empty", func(t *testing.T) {
		g := gateway.NewJSONFile(filepath.Join(t.TempDir(), "none.json"))
		records, err := g.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("create update delete round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"one"},{"id":"b","name":"two"}]`), 0644))
		g := gateway.NewJSONFile(path)

		res, err := g.Persist(ctx, domain.NewMutation(domain.ActionCreate, domain.NewRecord(domain.FieldOf("name", "three")), nil))
		require.NoError(t, err)
		assert.NotEmpty(t, res.Record.ID("id"), "new rows get an id when the file uses ids")

		upd := domain.NewRecord(domain.FieldOf("id", "a"), domain.FieldOf("name", "uno"))
		_, err = g.Persist(ctx, domain.NewMutation(domain.ActionUpdate, upd, domain.IndexPtr(99)))
		require.NoError(t, err)

		_, err = g.Persist(ctx, domain.NewMutation(domain.ActionDelete, domain.NewRecord(domain.FieldOf("id", "b")), nil))
		require.NoError(t, err)

		records, err := g.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "uno", records[0].Text("name"))
		assert.Equal(t, "three", records[1].Text("name"))
	})

	t.Run("positional fallback without ids", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"n":1},{"n":2},{"n":3}]`), 0644))
		g := gateway.NewJSONFile(path)

		_, err := g.Persist(ctx, domain.NewMutation(domain.ActionDelete, domain.NewRecord(domain.FieldOf("n", 2)), domain.IndexPtr(1)))
		require.NoError(t, err)

		records, err := g.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "1", records[0].Text("n"))
		assert.Equal(t, "3", records[1].Text("n"))
	})

	t.Run("unknown row is a remote store error", func(t *testing.T) {
		g := gateway.NewJSONFile(filepath.Join(t.TempDir(), "records.json"))
		_, err := g.Persist(ctx, domain.NewMutation(domain.ActionUpdate, domain.NewRecord(), domain.IndexPtr(0)))
		var rerr *gateway.RemoteStoreError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "record not found", err.Error())
	})

	t.Run("update leaves other elements byte for byte", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")
		untouched := `{"id":"a","tags":["x","y"],"active":true,"owner":null}`
		require.NoError(t, os.WriteFile(path, []byte(`[`+untouched+`,{"id":"b","name":"B","meta":{"k":1}},"note",7]`), 0644))
		g := gateway.NewJSONFile(path)

		records, err := g.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)

		upd := records[1].Merge(domain.NewRecord(domain.FieldOf("name", "Bee")))
		_, err = g.Persist(ctx, domain.NewMutation(domain.ActionUpdate, upd, domain.IndexPtr(1)))
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), untouched)
		assert.Contains(t, string(data), `{"id":"b","name":"Bee","meta":{"k":1}}`)

		var elems []any
		require.NoError(t, json.Unmarshal(data, &elems))
		require.Len(t, elems, 4)
		assert.Equal(t, "note", elems[2])
		assert.Equal(t, float64(7), elems[3])
	})

	t.Run("delete addresses records not raw elements", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")
		require.NoError(t, os.WriteFile(path, []byte(`["skip",{"n":1},{"n":2}]`), 0644))
		g := gateway.NewJSONFile(path)

		_, err := g.Persist(ctx, domain.NewMutation(domain.ActionDelete, domain.NewRecord(domain.FieldOf("n", 1)), domain.IndexPtr(0)))
		require.NoError(t, err)

		var elems []any
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &elems))
		assert.Equal(t, []any{"skip", map[string]any{"n": float64(2)}}, elems)
	})

	t.Run("bare object file is not rewritten", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "record.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"solo"}`), 0644))
		g := gateway.NewJSONFile(path)

		records, err := g.Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)

		_, err = g.Persist(ctx, domain.NewMutation(domain.ActionCreate, domain.NewRecord(domain.FieldOf("name", "two")), nil))
		assert.ErrorIs(t, err, gateway.ErrNotArray)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"solo"}`, string(data))
	})

	t.Run("empty file loads empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.json")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
		records, err := gateway.NewJSONFile(path).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("malformed file is a parse error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"a":`), 0644))
		_, err := gateway.NewJSONFile(path).Load(ctx)
		var perr *gateway.ParseError
		require.ErrorAs(t, err, &perr)
	})
}

func TestDecodeRecords_DropsNonObjectElements(t *testing.T) {
	records, err := gateway.DecodeRecords("test", []byte(`[{"a":1}, 5, "x", null, {"b":2}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a"}, records[0].Keys())
	assert.Equal(t, []string{"b"}, records[1].Keys())
}
