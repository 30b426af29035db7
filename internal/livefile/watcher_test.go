package livefile_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/livefile"
)

func TestWatcher_ReportsSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "description.txt")
	require.NoError(t, os.WriteFile(path, []byte("draft\n"), 0o644))

	var (
		mu   sync.Mutex
		seen []string
	)
	w, err := livefile.New(func(key, content string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, key+"="+content)
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch("description", path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("final text\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "description=final text"
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	for _, s := range seen {
		assert.Contains(t, s, "description=", "only the watched file is reported")
	}
	mu.Unlock()
}

func TestWatcher_Unwatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	calls := make(chan string, 10)
	w, err := livefile.New(func(key, _ string) { calls <- key })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch("notes", path))
	w.Unwatch("notes")
	require.NoError(t, os.WriteFile(path, []byte("ignored"), 0o644))

	select {
	case k := <-calls:
		t.Fatalf("unexpected change for %q", k)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestReadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\r\n\n"), 0o644))
	got, err := livefile.ReadContent(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}
