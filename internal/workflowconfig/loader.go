package workflowconfig

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigRelPath is the well-known location of the flow config relative
// to a project's working directory (spec §4.2, §6).
const ConfigRelPath = ".taskorchestrator/config.yaml"

// cacheTTL bounds how long a parsed config is reused before its mtime
// is rechecked, mirroring the teacher's workflow_parser.go
// double-checked-lock cache but keyed on working directory instead of
// file path, and bounded by time rather than living forever.
const cacheTTL = 2 * time.Second

type cacheEntry struct {
	config    *Config
	v1Mode    bool
	modTime   time.Time
	loadedAt  time.Time
}

// Loader resolves, parses, and caches the workflow config for a
// working directory. A Loader is a singleton dependency of the
// statusvalidator, progression, and cascade services (spec §2). Build
// one with NewLoader: the zero value has a nil cache map and logger.
type Loader struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	logger  *zap.Logger

	watcherOnce sync.Once
	watcher     *fsnotify.Watcher
}

// NewLoader builds a Loader. logger may be nil.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		entries: make(map[string]*cacheEntry),
		logger:  logger.With(zap.String("component", "workflowconfig")),
	}
}

// Load returns the active config for workDir along with whether the
// loader fell back to V1-compatibility mode (no config present, or the
// file failed to parse). Load never returns an error: a missing or
// malformed file degrades to V1 mode rather than failing the caller,
// per spec §4.2.
func (l *Loader) Load(workDir string) (cfg *Config, v1Mode bool) {
	path := filepath.Join(workDir, ConfigRelPath)

	l.mu.RLock()
	entry, ok := l.entries[workDir]
	l.mu.RUnlock()

	if ok && time.Since(entry.loadedAt) < cacheTTL {
		return entry.config, entry.v1Mode
	}

	info, statErr := os.Stat(path)
	if ok && statErr == nil && info.ModTime().Equal(entry.modTime) {
		// TTL expired but the file is unchanged; refresh the clock
		// without re-parsing.
		l.mu.Lock()
		entry.loadedAt = time.Now()
		l.mu.Unlock()
		return entry.config, entry.v1Mode
	}

	fresh, v1, modTime := l.load(path, statErr, info)

	l.mu.Lock()
	l.entries[workDir] = &cacheEntry{config: fresh, v1Mode: v1, modTime: modTime, loadedAt: time.Now()}
	l.mu.Unlock()

	l.watchOnce(path)

	return fresh, v1
}

func (l *Loader) load(path string, statErr error, info os.FileInfo) (*Config, bool, time.Time) {
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return Default(), true, time.Time{}
		}
		l.logger.Warn("cannot stat workflow config, falling back to V1 mode", zap.String("path", path), zap.Error(statErr))
		return Default(), true, time.Time{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("cannot read workflow config, falling back to V1 mode", zap.String("path", path), zap.Error(err))
		return Default(), true, info.ModTime()
	}

	cfg, err := Parse(data)
	if err != nil {
		l.logger.Warn("malformed workflow config, falling back to V1 mode", zap.String("path", path), zap.Error(err))
		return Default(), true, info.ModTime()
	}

	return cfg, false, info.ModTime()
}

// watchOnce lazily starts a single fsnotify watcher across every path
// this loader has ever seen, so a config edit invalidates the cache
// before the TTL would have (best-effort; the TTL is the correctness
// backstop if the watch fails or the platform lacks inotify).
func (l *Loader) watchOnce(path string) {
	l.watcherOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			l.logger.Warn("workflow config watcher unavailable, relying on TTL only", zap.Error(err))
			return
		}
		l.watcher = w
		go l.watchLoop()
	})
	if l.watcher != nil {
		_ = l.watcher.Add(filepath.Dir(path))
	}
}

func (l *Loader) watchLoop() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				l.invalidateByPath(event.Name)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("workflow config watcher error", zap.Error(err))
		}
	}
}

func (l *Loader) invalidateByPath(changed string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for workDir := range l.entries {
		if filepath.Join(workDir, ConfigRelPath) == changed {
			delete(l.entries, workDir)
		}
	}
}

// Close releases the fsnotify watcher, if one was started.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
