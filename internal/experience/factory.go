package experience

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/memoirhq/memoir/internal/logging"
)

// Factory loads experience definitions from YAML files in a directory and
// optionally watches it for changes.
type Factory struct {
	dir string

	mu          sync.RWMutex
	experiences map[string]*Experience

	watcher *fsnotify.Watcher
}

// NewFactory loads all definitions from dir.
func NewFactory(dir string) (*Factory, error) {
	f := &Factory{
		dir:         dir,
		experiences: make(map[string]*Experience),
	}
	if err := f.loadAll(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Factory) loadAll() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warnf("[experience] script directory %s does not exist", f.dir)
			return nil
		}
		return fmt.Errorf("read script dir %s: %w", f.dir, err)
	}

	loaded := make(map[string]*Experience)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		exp, err := loadFile(filepath.Join(f.dir, name))
		if err != nil {
			logging.Errorf("[experience] skipping %s: %v", name, err)
			continue
		}
		loaded[exp.ID] = exp
	}

	f.mu.Lock()
	f.experiences = loaded
	f.mu.Unlock()
	logging.Infof("[experience] loaded %d experience definitions from %s", len(loaded), f.dir)
	return nil
}

func loadFile(path string) (*Experience, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var exp Experience
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if exp.ID == "" {
		return nil, fmt.Errorf("experience in %s has no id", path)
	}
	if len(exp.Scenes) == 0 {
		return nil, fmt.Errorf("experience %s has no scenes", exp.ID)
	}
	for i := range exp.Scenes {
		if len(exp.Scenes[i].Events) == 0 {
			return nil, fmt.Errorf("experience %s scene %s has no events", exp.ID, exp.Scenes[i].ID)
		}
	}
	return &exp, nil
}

// Get returns the experience with the given id.
func (f *Factory) Get(experienceID string) (*Experience, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	exp, ok := f.experiences[experienceID]
	return exp, ok
}

// List returns all loaded experiences sorted by id.
func (f *Factory) List() []*Experience {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Experience, 0, len(f.experiences))
	for _, exp := range f.experiences {
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watch reloads definitions whenever a script file changes. Stops when the
// watcher is closed via Close.
func (f *Factory) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}
	f.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					logging.Infof("[experience] script change detected (%s), reloading", event.Name)
					if err := f.loadAll(); err != nil {
						logging.Errorf("[experience] reload failed: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Errorf("[experience] watcher error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if running.
func (f *Factory) Close() error {
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}
