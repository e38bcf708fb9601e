package plugin

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zot/modhost/internal/config"
)

// ReloadCallback is invoked after a Lua unit reloads successfully, so the
// host can re-render and republish affected pages.
type ReloadCallback func(unit string)

// HotLoader watches the plugin directory and reloads Lua units when their
// scripts change. Shared objects keep the restart-based deployment contract.
type HotLoader struct {
	config   *config.Config
	loader   *Loader
	watcher  *fsnotify.Watcher
	onReload ReloadCallback

	// Debouncing: editors fire several events per save.
	pendingReloads map[string]time.Time
	debounceMu     sync.Mutex
	debounceDelay  time.Duration

	done chan struct{}
}

// NewHotLoader creates a hot loader over the configured plugin directory.
func NewHotLoader(cfg *config.Config, loader *Loader, onReload ReloadCallback) (*HotLoader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &HotLoader{
		config:         cfg,
		loader:         loader,
		watcher:        watcher,
		onReload:       onReload,
		pendingReloads: make(map[string]time.Time),
		debounceDelay:  100 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching. Stop must be called to release the watcher.
func (h *HotLoader) Start() error {
	if err := h.watcher.Add(h.config.Plugins.Dir); err != nil {
		return err
	}
	go h.watch()
	go h.processPending()
	h.config.Log(0, "watching %s for lua unit changes", h.config.Plugins.Dir)
	return nil
}

// Stop stops watching.
func (h *HotLoader) Stop() {
	close(h.done)
	h.watcher.Close()
}

// watch translates filesystem events into pending reloads.
func (h *HotLoader) watch() {
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".lua" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.debounceMu.Lock()
			h.pendingReloads[event.Name] = time.Now()
			h.debounceMu.Unlock()
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.config.Log(0, "plugin watcher error: %v", err)
		}
	}
}

// processPending reloads files once their events settle.
func (h *HotLoader) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			var due []string
			h.debounceMu.Lock()
			now := time.Now()
			for path, stamp := range h.pendingReloads {
				if now.Sub(stamp) >= h.debounceDelay {
					due = append(due, path)
					delete(h.pendingReloads, path)
				}
			}
			h.debounceMu.Unlock()

			for _, path := range due {
				unit, err := h.loader.ReloadScript(path)
				if err != nil {
					h.config.Log(0, "hot reload of %s failed: %v", path, err)
					continue
				}
				if h.onReload != nil {
					h.onReload(unit)
				}
			}
		}
	}
}
