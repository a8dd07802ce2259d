package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeHandler is called with the freshly loaded configuration after the
// file on disk changes. Returning an error keeps the previous snapshot.
type ChangeHandler func(cfg *Config) error

// Watcher hot-reloads the config file and notifies registered handlers.
// Only tunables read through Snapshot pick up changes; component
// constructors capture their config at startup.
type Watcher struct {
	path     string
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	current  *Config
	handlers []ChangeHandler
}

// NewWatcher loads the initial configuration from path and prepares the
// file watch.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Watch the directory: editors and config-map mounts replace the file
	// rather than writing in place.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	return &Watcher{
		path:    path,
		logger:  logger,
		watcher: fw,
		stopCh:  make(chan struct{}),
		current: cfg,
	}, nil
}

// Snapshot returns the current configuration.
func (w *Watcher) Snapshot() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a handler invoked after each successful reload.
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching the config file.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop terminates the watch.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	// Debounce: editors fire several events per save.
	var pending <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(250 * time.Millisecond)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("Config reload failed, keeping previous snapshot",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	w.current = cfg
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		if err := h(cfg); err != nil {
			w.logger.Warn("Config change handler rejected reload", zap.Error(err))
		}
	}

	w.logger.Info("Configuration reloaded", zap.String("path", w.path))
}
