package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
	"datadesk/internal/secret"
	"datadesk/internal/service"
	"datadesk/internal/storage"
)

func newSettingsService(t *testing.T) (*service.SettingsService, *service.MockEmitter, *secret.EnvStore) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "datadesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	em := &service.MockEmitter{}
	secrets := secret.NewEnvStore("DATADESK_TEST_")
	return service.NewSettingsService(storage.NewSettingsStore(db, domain.DefaultSettings()), secrets, em), em, secrets
}

func TestSettingsService_SaveAndReload(t *testing.T) {
	svc, em, _ := newSettingsService(t)

	var seen []domain.Settings
	svc.OnChange(func(_ context.Context, st domain.Settings) { seen = append(seen, st) })

	st, err := svc.SetWebhooks(context.Background(),
		"https://hooks.example.com/webhook/load-data",
		"https://hooks.example.com/webhook/save-data")
	require.NoError(t, err)

	got, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, domain.BackendWebhook, got.Backend)
	assert.Equal(t, 1, em.Count(service.EventSettingsChanged))
	require.Len(t, seen, 1)
	assert.Equal(t, got.SaveURL, seen[0].SaveURL)
}

func TestSettingsService_SaveRejectsInvalid(t *testing.T) {
	svc, em, _ := newSettingsService(t)

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
		errMsg string
	}{
		{"unknown backend", func(s *domain.Settings) { s.Backend = "ftp" }, "unknown backend"},
		{"relative url", func(s *domain.Settings) { s.LoadURL = "/load" }, "load url"},
		{"bad scheme", func(s *domain.Settings) { s.SaveURL = "ftp://x/save" }, "save url"},
		{"bad driver", func(s *domain.Settings) {
			s.Backend = domain.BackendTable
			s.Table.Driver = "oracle"
		}, "table driver"},
		{"bad schedule", func(s *domain.Settings) { s.Reload.Schedule = "every now and then" }, "reload schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := domain.DefaultSettings()
			tt.mutate(&st)
			err := svc.Save(context.Background(), st)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.Zero(t, em.Count(service.EventSettingsChanged))

	valid := domain.DefaultSettings()
	valid.Reload.Schedule = "@every 5m"
	assert.NoError(t, service.Validate(valid), "empty urls are allowed")
}

func TestSettingsService_TablePassword(t *testing.T) {
	svc, _, secrets := newSettingsService(t)

	require.NoError(t, svc.SetTablePassword("s3cret"))
	got, _ := secrets.Get(secret.TablePasswordKey)
	assert.Equal(t, "s3cret", string(got))

	require.NoError(t, svc.SetTablePassword(""))
	got, _ = secrets.Get(secret.TablePasswordKey)
	assert.Empty(t, got)
}

func TestSettingsService_WindowSize(t *testing.T) {
	svc, _, _ := newSettingsService(t)
	assert.Equal(t, service.WindowSize{Width: 1280, Height: 800}, svc.LoadWindowSize())

	require.NoError(t, svc.SaveWindowSize(1600, 900))
	assert.Equal(t, service.WindowSize{Width: 1600, Height: 900}, svc.LoadWindowSize())

	require.NoError(t, svc.SaveWindowSize(300, 200))
	assert.Equal(t, service.WindowSize{Width: 1280, Height: 800}, svc.LoadWindowSize(), "too small falls back")
}
