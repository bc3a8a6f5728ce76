package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeWrite ChangeType = iota
	ChangeRemove
)

func (t ChangeType) String() string {
	if t == ChangeRemove {
		return "remove"
	}
	return "write"
}

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// Config configures the file watcher.
type Config struct {
	// Paths are the directories to watch, recursively.
	Paths []string

	// Include are doublestar patterns matched against the file name.
	// A file that matches none is not reported.
	Include []string

	// Ignore patterns to skip. A pattern without a slash matches any path
	// segment; a pattern with one is matched against the whole path.
	Ignore []string

	// Debounce is how long a path must stay quiet before it is reported.
	Debounce time.Duration

	// Logger receives watcher diagnostics.
	Logger *slog.Logger
}

// DefaultInclude matches scenario files.
var DefaultInclude = []string{"*.yaml", "*.yml"}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"testdata/golden",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports file changes under a set of directories. Bursts of
// events for one path are collapsed into a single Change.
type Watcher struct {
	config   Config
	onChange func(Change)
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	pending map[string]ChangeType
	timer   *time.Timer
}

// New creates a new file watcher.
func New(config Config) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Include) == 0 {
		config.Include = DefaultInclude
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Watcher{
		config:  config,
		log:     config.Logger.With("component", "watch"),
		pending: make(map[string]ChangeType),
	}
}

// OnChange sets the callback for file changes. The callback runs on the
// watcher's goroutine, one change at a time.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.IsRunning() {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.config.Paths {
		if err := w.addTree(fsw, root); err != nil {
			fsw.Close()
			return err
		}
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		fsw.Close()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		fsw.Close()
		w.mu.Lock()
		w.running = false
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	}()

	flush := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event, flush)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-flush:
			w.flush()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Scan lists the files under the watched paths that the watcher would
// report, sorted.
func (w *Watcher) Scan() []string {
	var files []string
	for _, root := range w.config.Paths {
		filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != root && w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.matches(p) {
				files = append(files, p)
			}
			return nil
		})
	}
	sort.Strings(files)
	return files
}

// addTree watches root and every directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		w.log.Debug("watching directory", "path", p)
		return fsw.Add(p)
	})
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event, flush chan struct{}) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.shouldIgnore(event.Name) {
				if err := w.addTree(fsw, event.Name); err != nil {
					w.log.Debug("failed to watch directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}
	if !w.matches(event.Name) {
		return
	}

	var typ ChangeType
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		typ = ChangeWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		typ = ChangeRemove
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = typ
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.Debounce, func() {
		select {
		case flush <- struct{}{}:
		default:
		}
	})
}

// flush reports pending changes in path order.
func (w *Watcher) flush() {
	w.mu.Lock()
	callback := w.onChange
	changes := make([]Change, 0, len(w.pending))
	for p, typ := range w.pending {
		changes = append(changes, Change{Path: p, Type: typ})
	}
	w.pending = make(map[string]ChangeType)
	w.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	if callback == nil {
		return
	}
	for _, c := range changes {
		callback(c)
	}
}

// matches reports whether a file path should be reported.
func (w *Watcher) matches(p string) bool {
	if w.shouldIgnore(p) {
		return false
	}
	name := filepath.Base(p)
	for _, pattern := range w.config.Include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}

		if strings.Contains(pattern, "/") {
			if strings.Contains("/"+normalized+"/", "/"+strings.Trim(pattern, "/")+"/") {
				return true
			}
			if ok, _ := doublestar.Match(pattern, normalized); ok {
				return true
			}
			continue
		}

		if strings.ContainsAny(pattern, "*?[{") {
			if ok, _ := doublestar.Match(pattern, name); ok {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
