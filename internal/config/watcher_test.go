package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watcherConfigV1 = `
services:
  - key: books
    name: Books
    url: http://localhost:8082
`

const watcherConfigV2 = `
services:
  - key: books
    name: Books
    url: http://localhost:9999
`

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherConfigV1), 0o600))

	reloaded := make(chan *GatewayConfig, 1)
	w := NewWatcher(path, func(cfg *GatewayConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(watcherConfigV2), 0o600))

	select {
	case cfg := <-reloaded:
		require.Len(t, cfg.Services, 1)
		assert.Equal(t, "http://localhost:9999", cfg.Services[0].URL)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatcherRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherConfigV1), 0o600))

	reloaded := make(chan struct{}, 1)
	w := NewWatcher(path, func(cfg *GatewayConfig) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}, nil)
	require.NoError(t, w.Start())
	defer w.Stop()

	// No services: validation fails, the callback must not fire.
	require.NoError(t, os.WriteFile(path, []byte("services: []\n"), 0o600))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not trigger the reload callback")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherConfigV1), 0o600))

	w := NewWatcher(path, func(cfg *GatewayConfig) {}, nil)
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop()
}
