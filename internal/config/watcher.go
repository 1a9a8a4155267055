package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// DefaultDebounce coalesces rapid editor write events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is called with the freshly loaded configuration after a
// change is detected and the file parses and validates.
type ReloadFunc func(cfg *GatewayConfig)

// Watcher watches the configuration file and triggers reloads.
type Watcher struct {
	path     string
	onReload ReloadFunc
	logger   observability.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a config file watcher. Call Start to begin watching.
func NewWatcher(path string, onReload ReloadFunc, logger observability.Logger) *Watcher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Watcher{
		path:     path,
		onReload: onReload,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// Start begins watching the configuration file's directory. Watching the
// directory instead of the file survives atomic rename-based saves.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.watcher = fsw
	w.mu.Unlock()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	go w.loop(fsw)

	w.logger.Info("watching configuration file",
		observability.String("path", w.path),
	)
	return nil
}

// loop consumes fsnotify events until the watcher is closed.
func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	target := filepath.Clean(w.path)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", observability.Error(err))
		}
	}
}

// scheduleReload debounces the reload so a burst of write events results
// in a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload loads, validates, and hands the new config to the callback.
// Invalid configurations are logged and ignored; the running config
// stays in effect.
func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Error("config reload failed", observability.Error(err))
		return
	}
	if err := ValidateConfig(cfg); err != nil {
		w.logger.Error("config reload rejected", observability.Error(err))
		return
	}

	w.logger.Info("configuration reloaded",
		observability.String("path", w.path),
	)
	w.onReload(cfg)
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}
