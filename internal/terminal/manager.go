package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creack/pty"
)

// Manager runs one $EDITOR session inside a PTY, streaming its output to the page.
type Manager struct {
	mu      sync.Mutex
	ptmx    *os.File
	cmd     *exec.Cmd
	onData  func(data []byte)
	onExit  func(path string)
	running bool
	editor  []string // binary plus its own arguments, e.g. ["code", "-w"]
	path    string   // file being edited
	// size applied when the next session starts
	pendingCols uint16
	pendingRows uint16
	shellPath   string // user's full login shell PATH (resolved once)
}

// resolveEditor finds the absolute path for the editor binary.
// Desktop apps on macOS don't inherit the shell's $PATH, so common
// installation paths are probed as a fallback.
func resolveEditor(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	candidates := []string{
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/run/current-system/sw/bin", name),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".local/bin", name),
			filepath.Join(home, ".nix-profile/bin", name),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return name
}

// resolveShellPath gets the user's full login shell PATH so the editor's
// child processes find installed tools.
func resolveShellPath() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	out, err := exec.Command(shell, "-lc", "echo $PATH").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// EditorCommand splits an $EDITOR value such as "code -w" and resolves the binary.
// Empty means nvim.
func EditorCommand(editor string) []string {
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		parts = []string{"nvim"}
	}
	parts[0] = resolveEditor(parts[0])
	return parts
}

// New creates a manager for $EDITOR (default nvim).
func New(onData func(data []byte), onExit func(path string)) *Manager {
	return NewWithEditor(os.Getenv("EDITOR"), onData, onExit)
}

// NewWithEditor creates a manager for the given editor command.
func NewWithEditor(editor string, onData func(data []byte), onExit func(path string)) *Manager {
	return &Manager{
		onData:      onData,
		onExit:      onExit,
		editor:      EditorCommand(editor),
		pendingCols: 80,
		pendingRows: 24,
		shellPath:   resolveShellPath(),
	}
}

// Open starts the editor on filePath, closing any running session first.
// onExit receives filePath once the editor quits.
func (m *Manager) Open(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.closeInternal()
	}

	args := append(append([]string{}, m.editor[1:]...), filePath)
	cmd := exec.Command(m.editor[0], args...)
	cmd.Env = m.environ()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: m.pendingCols,
		Rows: m.pendingRows,
	})
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}

	m.ptmx = ptmx
	m.cmd = cmd
	m.path = filePath
	m.running = true

	go m.pump(ptmx, cmd, filePath)
	return nil
}

// pump forwards PTY output until the editor exits.
func (m *Manager) pump(ptmx *os.File, cmd *exec.Cmd, filePath string) {
	buf := make([]byte, 32768)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if m.onData != nil {
				m.onData(data)
			}
		}
		if err != nil {
			break
		}
	}

	m.mu.Lock()
	// Close or a newer session may have replaced this one.
	current := m.cmd == cmd
	if current {
		m.ptmx.Close()
		m.ptmx = nil
		m.cmd = nil
		m.running = false
	}
	m.mu.Unlock()

	if !current {
		return
	}
	cmd.Wait()
	if m.onExit != nil {
		m.onExit(filePath)
	}
}

func (m *Manager) environ() []string {
	env := os.Environ()
	if m.shellPath != "" {
		replaced := false
		for i, e := range env {
			if strings.HasPrefix(e, "PATH=") {
				env[i] = "PATH=" + m.shellPath
				replaced = true
				break
			}
		}
		if !replaced {
			env = append(env, "PATH="+m.shellPath)
		}
	}
	return append(env,
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)
}

// Write sends keystrokes from xterm.js to the PTY.
func (m *Manager) Write(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.ptmx == nil {
		return fmt.Errorf("no active terminal session")
	}

	_, err := io.WriteString(m.ptmx, data)
	return err
}

// Resize updates the PTY window size.
func (m *Manager) Resize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pendingCols = cols
	m.pendingRows = rows

	if !m.running || m.ptmx == nil {
		return nil
	}
	return pty.Setsize(m.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// IsRunning returns whether a session is active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Path returns the file of the current or last session.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Close kills the current session without calling onExit.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeInternal()
}

func (m *Manager) closeInternal() {
	if m.ptmx != nil {
		m.ptmx.Close()
		m.ptmx = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
	}
	m.cmd = nil
	m.running = false
}
