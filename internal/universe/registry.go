package universe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"openclaw/internal/logger"
)

// FileConfig maps the universe yaml: named watchlists of tickers.
type FileConfig struct {
	Lists map[string][]string `mapstructure:"lists" yaml:"lists"`
}

// Snapshot is the published, immutable view of the loaded lists.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Lists    map[string][]string
}

// ChangeListener fires after each successful reload.
type ChangeListener func(Snapshot)

// Registry loads the watchlist file and hot-reloads it on change, so a
// running scan daemon picks up list edits without a restart.
type Registry struct {
	path    string
	watcher *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("universe: watchlist path must not be empty")
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	r.watcher = viper.New()
	r.watcher.SetConfigFile(path)
	if err := r.watcher.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("universe: watch %s: %w", path, err)
	}
	r.watcher.OnConfigChange(func(fsnotify.Event) { r.onFileChange() })
	r.watcher.WatchConfig()
	return r, nil
}

func (r *Registry) onFileChange() {
	if err := r.reload(); err != nil {
		logger.Errorf("universe reload failed: %v", err)
		return
	}
	r.notifyListeners()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// List returns the named watchlist, or ok=false when it does not exist.
func (r *Registry) List(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tickers, ok := r.snapshot.Lists[normalizeListName(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), tickers...), true
}

// Tickers merges the named lists, deduplicated and sorted. Empty names
// merge everything.
func (r *Registry) Tickers(names ...string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uniq := make(map[string]struct{})
	if len(names) == 0 {
		for name := range r.snapshot.Lists {
			names = append(names, name)
		}
	}
	for _, name := range names {
		for _, t := range r.snapshot.Lists[normalizeListName(name)] {
			uniq[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(uniq))
	for t := range uniq {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a listener for reload events.
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readUniverseFile(r.path)
	if err != nil {
		return err
	}
	lists := make(map[string][]string, len(cfg.Lists))
	total := 0
	for name, tickers := range cfg.Lists {
		cleaned := make([]string, 0, len(tickers))
		seen := make(map[string]bool, len(tickers))
		for _, raw := range tickers {
			t := strings.ToUpper(strings.TrimSpace(raw))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			cleaned = append(cleaned, t)
		}
		lists[normalizeListName(name)] = cleaned
		total += len(cleaned)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Lists:    lists,
	}
	r.mu.Unlock()
	logger.Infof("universe loaded %d lists (%d tickers) from %s", len(lists), total, filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("universe listener")
			cb(snap)
		}(fn)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Lists:    make(map[string][]string, len(src.Lists)),
	}
	for name, tickers := range src.Lists {
		dst.Lists[name] = append([]string(nil), tickers...)
	}
	return dst
}

func normalizeListName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func readUniverseFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read universe config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse universe config failed: %w", err)
	}
	return cfg, nil
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}
