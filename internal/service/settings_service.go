package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/robfig/cron/v3"

	"datadesk/internal/domain"
	"datadesk/internal/secret"
)

// KVStore is the raw key/value side of the settings table.
type KVStore interface {
	domain.SettingsStore
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ─────────────────────────────────────────────────────────────
// Settings Service
// ─────────────────────────────────────────────────────────────
//
// Settings live in app_settings and are reloaded on next start. Save
// notifies listeners (the reload watchers) so changes apply immediately.

// SettingsService validates and persists user settings.
type SettingsService struct {
	store    KVStore
	secrets  secret.SecretStore
	emitter  EventEmitter
	onChange []func(context.Context, domain.Settings)
}

// NewSettingsService creates a SettingsService. secrets may be nil.
func NewSettingsService(store KVStore, secrets secret.SecretStore, emitter EventEmitter) *SettingsService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &SettingsService{store: store, secrets: secrets, emitter: emitter}
}

// OnChange registers fn to run after every successful Save.
func (s *SettingsService) OnChange(fn func(context.Context, domain.Settings)) {
	s.onChange = append(s.onChange, fn)
}

// Load returns the saved settings, falling back to defaults for unset keys.
func (s *SettingsService) Load() (domain.Settings, error) {
	return s.store.LoadSettings()
}

// Save validates and persists st.
func (s *SettingsService) Save(ctx context.Context, st domain.Settings) error {
	if err := Validate(st); err != nil {
		return err
	}
	if err := s.store.SaveSettings(st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.emitter.Emit(ctx, EventSettingsChanged, st)
	for _, fn := range s.onChange {
		fn(ctx, st)
	}
	return nil
}

// SetWebhooks switches to the webhook backend with the given URLs.
func (s *SettingsService) SetWebhooks(ctx context.Context, loadURL, saveURL string) (domain.Settings, error) {
	st, err := s.Load()
	if err != nil {
		return st, err
	}
	st.Backend = domain.BackendWebhook
	st.LoadURL = loadURL
	st.SaveURL = saveURL
	return st, s.Save(ctx, st)
}

// SetTablePassword stores the table password in the secret store.
// An empty password deletes it.
func (s *SettingsService) SetTablePassword(password string) error {
	if s.secrets == nil {
		return fmt.Errorf("set table password: no secret store")
	}
	if password == "" {
		return s.secrets.Delete(secret.TablePasswordKey)
	}
	if err := s.secrets.Set(secret.TablePasswordKey, []byte(password)); err != nil {
		return fmt.Errorf("set table password: %w", err)
	}
	return nil
}

// Validate checks st before it is saved. Empty URLs are allowed: they block
// the operation later and send the user back to the settings form.
func Validate(st domain.Settings) error {
	switch st.Backend {
	case domain.BackendWebhook, domain.BackendTable, domain.BackendJSONFile:
	default:
		return fmt.Errorf("unknown backend %q", st.Backend)
	}
	for name, raw := range map[string]string{"load url": st.LoadURL, "save url": st.SaveURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: %q is not an http(s) URL", name, raw)
		}
	}
	if st.Backend == domain.BackendTable {
		switch st.Table.Driver {
		case domain.DatabaseDriverSQLite, domain.DatabaseDriverMySQL,
			domain.DatabaseDriverPostgres, domain.DatabaseDriverMongoDB, "":
		default:
			return fmt.Errorf("unknown table driver %q", st.Table.Driver)
		}
	}
	if st.Reload.Schedule != "" {
		if _, err := cron.ParseStandard(st.Reload.Schedule); err != nil {
			return fmt.Errorf("reload schedule: %w", err)
		}
	}
	return nil
}

// ── Window size ───────────────────────────────────────────

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

// LoadWindowSize returns the saved window dimensions, or defaults.
func (s *SettingsService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if v, ok, _ := s.store.Get(settingWindowWidth); ok {
		if w, err := strconv.Atoi(v); err == nil && w >= 800 {
			size.Width = w
		}
	}
	if v, ok, _ := s.store.Get(settingWindowHeight); ok {
		if h, err := strconv.Atoi(v); err == nil && h >= 600 {
			size.Height = h
		}
	}
	return size
}

// SaveWindowSize persists the window dimensions.
func (s *SettingsService) SaveWindowSize(width, height int) error {
	if err := s.store.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.store.Set(settingWindowHeight, strconv.Itoa(height))
}
