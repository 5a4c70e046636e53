package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchAppliesValidEditsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"speech": {"voice": "alloy"}}`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan Loaded, 8)
	require.NoError(t, Watch(ctx, path, nil, func(loaded Loaded) { applied <- loaded }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jsonc"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`{"speech": {"voice": "nova"`), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`{"speech": {"voice": "shimmer", "rate": 1.2}}`), 0o600))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case loaded := <-applied:
			require.Equal(t, path, loaded.Path)
			if loaded.Config.Speech.Voice == "shimmer" {
				require.InDelta(t, 1.2, loaded.Config.Speech.Rate, 1e-9)
				return
			}
			require.NotEqual(t, "nova", loaded.Config.Speech.Voice)
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestWatchMissingDirectoryFails(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent", "config.jsonc"), nil, func(Loaded) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "watch config dir")
}
