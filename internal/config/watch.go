package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration file when it changes and hands the result to a callback.
// Invalid edits are logged and ignored so the previous configuration stays active.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	once   sync.Once
}

// Watch starts watching path. The parent directory is watched so editors that replace the
// file on save are still seen.
func Watch(path string, logger zerolog.Logger, callback func(*Config)) (*Watcher, error) {
	return watch(path, logger, defaultDebounce, callback)
}

func watch(path string, logger zerolog.Logger, debounce time.Duration, callback func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	cw := &Watcher{
		path:     abs,
		callback: callback,
		watcher:  w,
		logger:   logger,
		debounce: debounce,
		stopCh:   make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cw.debounce, cw.reload)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn().Err(err).Msg("config watcher error")
		case <-cw.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	select {
	case <-cw.stopCh:
		return
	default:
	}
	cfg, err := Load(cw.path)
	if err != nil {
		cw.logger.Error().Err(err).Str("path", cw.path).Msg("config reload failed")
		return
	}
	cw.logger.Info().Str("path", cw.path).Msg("config reloaded")
	cw.callback(cfg)
}

// Stop ends the watch. It is safe to call more than once.
func (cw *Watcher) Stop() error {
	var err error
	cw.once.Do(func() {
		close(cw.stopCh)
		err = cw.watcher.Close()
	})
	return err
}
