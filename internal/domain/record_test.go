package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
)

func TestRecord_UnmarshalKeepsOrder(t *testing.T) {
	var r domain.Record
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":"a","alpha":2,"mid":true,"none":null,"nested":{"b":1,"a":2}}`), &r))

	assert.Equal(t, []string{"zeta", "alpha", "mid", "none", "nested"}, r.Keys())

	v, ok := r.Get("alpha")
	require.True(t, ok)
	assert.True(t, v.IsNumber())
	assert.Equal(t, 2.0, v.Number)

	assert.Equal(t, "true", r.Text("mid"))
	assert.Equal(t, "", r.Text("none"))
	assert.Equal(t, `{"a":2,"b":1}`, r.Text("nested"))
}

func TestRecord_MarshalRoundTripsOrderAndTypes(t *testing.T) {
	in := `{"name":"Plant A","capacity":12,"ratio":0.5}`
	var r domain.Record
	require.NoError(t, json.Unmarshal([]byte(in), &r))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestRecord_SetKeepsPositionAndAppends(t *testing.T) {
	r := domain.NewRecord(
		domain.FieldOf("a", "1"),
		domain.FieldOf("b", 2),
	)
	r.Set("a", domain.Text("x"))
	r.Set("c", domain.Number(3))

	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
	assert.Equal(t, "x", r.Text("a"))
	assert.Equal(t, "3", r.Text("c"))
}

func TestRecord_MergeIsShallowAndDoesNotMutate(t *testing.T) {
	base := domain.NewRecord(domain.FieldOf("name", "Plant A"), domain.FieldOf("capacity", 12))
	patch := domain.NewRecord(domain.FieldOf("capacity", "15"))

	merged := base.Merge(patch)

	assert.Equal(t, "15", merged.Text("capacity"))
	v, _ := merged.Get("capacity")
	assert.False(t, v.IsNumber())

	orig, _ := base.Get("capacity")
	assert.True(t, orig.IsNumber(), "base record must not change")
}

func TestRecord_DeleteAndClone(t *testing.T) {
	r := domain.NewRecord(domain.FieldOf("id", 7), domain.FieldOf("name", "n"))
	c := r.Clone()
	c.Delete("id")

	assert.Equal(t, []string{"name"}, c.Keys())
	assert.Equal(t, []string{"id", "name"}, r.Keys())
	assert.Equal(t, "7", r.ID("id"))
	assert.Equal(t, "", c.ID("id"))
}

func TestRecord_Equal(t *testing.T) {
	a := domain.NewRecord(domain.FieldOf("x", 1))
	b := domain.NewRecord(domain.FieldOf("x", 1.0))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(domain.NewRecord(domain.FieldOf("x", "1"))))
	assert.True(t, domain.Record{}.Equal(domain.NewRecord()))
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		in   domain.Value
		want string
	}{
		{domain.Number(12), "12"},
		{domain.Number(12.5), "12.5"},
		{domain.Number(-0.25), "-0.25"},
		{domain.Text("abc"), "abc"},
		{domain.Text(""), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestColumns(t *testing.T) {
	t.Run("first record order minus system fields", func(t *testing.T) {
		records := []domain.Record{
			domain.NewRecord(
				domain.FieldOf("id", 1),
				domain.FieldOf("name", "a"),
				domain.FieldOf("created_at", "2024"),
				domain.FieldOf("capacity", 3),
			),
			domain.NewRecord(domain.FieldOf("other", "x")),
		}
		assert.Equal(t, []string{"name", "capacity"}, domain.Columns(records, domain.SystemFields))
	})

	t.Run("empty list has no columns", func(t *testing.T) {
		assert.Empty(t, domain.Columns(nil, domain.SystemFields))
	})

	t.Run("nil denylist keeps everything", func(t *testing.T) {
		records := []domain.Record{domain.NewRecord(domain.FieldOf("id", 1), domain.FieldOf("n", 2))}
		assert.Equal(t, []string{"id", "n"}, domain.Columns(records, nil))
	})
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Created By", domain.Label("created_by"))
	assert.Equal(t, "Name", domain.Label("name"))
}

func TestNewMutation(t *testing.T) {
	m1 := domain.NewMutation(domain.ActionUpdate, domain.NewRecord(), domain.IndexPtr(2))
	m2 := domain.NewMutation(domain.ActionUpdate, domain.NewRecord(), nil)

	assert.NotEmpty(t, m1.Key)
	assert.NotEqual(t, m1.Key, m2.Key)
	require.NotNil(t, m1.Index)
	assert.Equal(t, 2, *m1.Index)
	assert.Nil(t, m2.Index)
	assert.False(t, m1.Timestamp.IsZero())
	assert.True(t, domain.ActionDelete.Valid())
	assert.False(t, domain.Action("upsert").Valid())
}
