package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
	"datadesk/internal/service"
)

type countingFetcher struct{ calls atomic.Int32 }

func (c *countingFetcher) Fetch(context.Context) ([]domain.Record, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestWatchedFiles(t *testing.T) {
	st := domain.DefaultSettings()
	assert.Empty(t, service.WatchedFiles(st))

	st.Backend = domain.BackendJSONFile
	st.File.Path = "/data/plants.json"
	st.Reload.WatchFile = "/data/plants.json"
	assert.Equal(t, []string{"/data/plants.json"}, service.WatchedFiles(st))

	st.Reload.WatchFile = "/data/trigger"
	assert.Equal(t, []string{"/data/plants.json", "/data/trigger"}, service.WatchedFiles(st))
}

func TestReloadService_FileChangeTriggersFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plants.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	f := &countingFetcher{}
	svc := service.NewReloadService(f)
	defer svc.Stop()

	st := domain.DefaultSettings()
	st.Backend = domain.BackendJSONFile
	st.File.Path = path
	svc.Restart(context.Background(), st)

	// Several quick writes collapse into one reload.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Plant A"}]`), 0o644))
	}

	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestReloadService_Schedule(t *testing.T) {
	f := &countingFetcher{}
	svc := service.NewReloadService(f)
	defer svc.Stop()

	st := domain.DefaultSettings()
	st.Reload.Schedule = "@every 1s"
	svc.Restart(context.Background(), st)

	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestReloadService_StopIsIdempotent(t *testing.T) {
	svc := service.NewReloadService(&countingFetcher{})
	svc.Restart(context.Background(), domain.Settings{Reload: domain.ReloadSettings{Schedule: "not a cron"}})
	svc.Stop()
	svc.Stop()
}
