// loader.go keeps a file-backed Config current and reloads it on change.

package config

import (
	"fmt"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader holds a YAML-backed Config and reloads it when the file changes.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  Config
	onChange []func(Config)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Loader{path: path, current: cfg}, nil
}

// Config returns the latest configuration.
func (l *Loader) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Reload re-reads the file and notifies callbacks. On error the previous
// configuration is kept.
func (l *Loader) Reload() (Config, error) {
	cfg, err := LoadFile(l.path)
	if err != nil {
		return Config{}, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := slices.Clone(l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// Watch reloads the config on file writes until stop is called.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					// Keep the old config on parse errors.
					_, _ = l.Reload()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}
