package terminal

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorCommand(t *testing.T) {
	assert.Equal(t, "/usr/bin/vi", EditorCommand("/usr/bin/vi")[0])

	cmd := EditorCommand("/opt/code -w")
	assert.Equal(t, []string{"/opt/code", "-w"}, cmd)

	assert.True(t, strings.HasSuffix(EditorCommand("")[0], "nvim"))
}

func TestManager_RunsEditorAndReportsExit(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("long form text"), 0o644))

	var (
		mu     sync.Mutex
		output strings.Builder
	)
	exited := make(chan string, 1)
	m := NewWithEditor(cat,
		func(data []byte) {
			mu.Lock()
			output.Write(data)
			mu.Unlock()
		},
		func(p string) { exited <- p },
	)
	defer m.Close()

	require.NoError(t, m.Open(path))

	select {
	case p := <-exited:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("editor did not exit")
	}
	assert.False(t, m.IsRunning())
	assert.Equal(t, path, m.Path())

	mu.Lock()
	assert.Contains(t, output.String(), "long form text")
	mu.Unlock()

	assert.Error(t, m.Write("x"), "no session after exit")
	assert.NoError(t, m.Resize(120, 40))
}
