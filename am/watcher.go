package am

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/rfbridge/errors"
	"github.com/teranos/rfbridge/logger"
)

// ConfigWatcher watches a config file for changes and triggers reload callbacks
type ConfigWatcher struct {
	configPath      string
	watcher         *fsnotify.Watcher
	callbacks       []ReloadCallback
	mu              sync.RWMutex
	debounceTimer   *time.Timer
	debouncePeriod  time.Duration
	ownWriteUntil   time.Time // Events before this instant come from SaveSetting
	isOwnWriteMutex sync.Mutex
	done            chan struct{}
}

// ReloadCallback is called with the freshly loaded config.
// An error is logged; the remaining callbacks still run.
type ReloadCallback func(*Config) error

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher creates a new config file watcher.
// The parent directory is watched so editors that replace the file are still seen.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch config directory for %s", configPath)
	}

	return &ConfigWatcher{
		configPath:     configPath,
		watcher:        watcher,
		callbacks:      make([]ReloadCallback, 0),
		debouncePeriod: 500 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// SetDebounce overrides the debounce period
func (cw *ConfigWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debouncePeriod = d
}

// Path returns the watched file
func (cw *ConfigWatcher) Path() string {
	return cw.configPath
}

// OnReload registers a callback to be called when config is reloaded
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// ownWriteWindow covers the truncate and write events a single save produces
const ownWriteWindow = 250 * time.Millisecond

// MarkOwnWrite marks the writes of the next moment as coming from us (prevents reload loops)
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.isOwnWriteMutex.Lock()
	defer cw.isOwnWriteMutex.Unlock()
	cw.ownWriteUntil = time.Now().Add(ownWriteWindow)
}

func (cw *ConfigWatcher) checkOwnWrite() bool {
	cw.isOwnWriteMutex.Lock()
	defer cw.isOwnWriteMutex.Unlock()
	return time.Now().Before(cw.ownWriteUntil)
}

// Start begins watching for config file changes
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if isBackupFile(event.Name) {
				continue
			}
			if cw.checkOwnWrite() {
				logger.Debugw("Config watcher ignoring own write", "file", event.Name)
				continue
			}

			logger.Infow("Config watcher detected change",
				"file", event.Name,
				"op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid file changes and triggers reload
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}

	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed", "error", err)
		}
	})
}

// reload parses the watched file, validates it and fans it out to the callbacks.
// An invalid file leaves the running configuration untouched.
func (cw *ConfigWatcher) reload() error {
	newConfig, err := LoadFromFile(cw.configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := newConfig.Validate(); err != nil {
		return errors.Wrapf(err, "ignoring invalid config %s", cw.configPath)
	}

	// Drop the cached cascade so Load and am get see the new values
	Reset()

	logger.Infow("Config reloaded successfully", "path", cw.configPath)

	cw.mu.RLock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(newConfig); err != nil {
			logger.Warnw("Config reload callback error", "error", err)
		}
	}

	return nil
}

// Stop stops watching for config changes
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	select {
	case <-cw.done:
	default:
		close(cw.done)
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// isBackupFile checks if the file is a rotated backup (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back")+1
}

// SetGlobalWatcher sets the global watcher instance (used to prevent reload loops)
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the global watcher instance
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
