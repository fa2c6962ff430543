// Package watch re-runs extraction when project sources change. Directories
// are watched recursively with fsnotify; bursts of events are collapsed into
// one rebuild after a quiet period.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/maid-docs/maid/internal/exclude"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Exclude lists root-relative patterns whose changes are ignored.
	Exclude []string
	Logger  *zap.Logger
}

// RebuildFunc is called with the sorted paths that changed since the last
// call. An error is logged and watching continues.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher watches project trees for source changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	roots    []string
	matcher  *exclude.Matcher
	debounce time.Duration
	log      *zap.Logger
}

// New watches every directory under roots. A root naming a file watches the
// directory holding it.
func New(roots []string, opts Options) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("nothing to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	w := &Watcher{
		fsw:      fsw,
		matcher:  exclude.NewMatcher(opts.Exclude),
		debounce: opts.Debounce,
		log:      opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "resolve %s", root)
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		w.roots = append(w.roots, abs)
		if _, err := w.addTree(abs); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Relevant reports whether a change to path can alter extraction output.
func Relevant(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".cs") ||
		strings.HasSuffix(name, ".csproj") ||
		strings.HasSuffix(name, ".symbols.json")
}

func skipDir(name string) bool {
	switch name {
	case "bin", "obj", ".git", ".vs", ".maid", "node_modules":
		return true
	}
	return false
}

// rel returns path relative to the root holding it.
func (w *Watcher) rel(path string) string {
	for _, root := range w.roots {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			return filepath.ToSlash(r)
		}
	}
	return filepath.ToSlash(path)
}

func (w *Watcher) ignored(path string) bool {
	r := w.rel(path)
	return r != "." && w.matcher.Match(r)
}

// addTree watches dir and its subdirectories and returns the relevant files
// already present below it.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && (skipDir(d.Name()) || w.ignored(path)) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return errors.Wrapf(err, "watch %s", path)
			}
			return nil
		}
		if Relevant(path) && !w.ignored(path) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// Run calls rebuild after every burst of relevant changes until ctx is done.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event, pending) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Info("sources changed; rebuilding", zap.Int("files", len(changed)))
			if err := rebuild(ctx, changed); err != nil {
				w.log.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}

// handle records event in pending and reports whether it counts.
func (w *Watcher) handle(event fsnotify.Event, pending map[string]struct{}) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if w.ignored(event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if skipDir(info.Name()) {
				return false
			}
			// Files written before the watch was added are only seen here.
			found, err := w.addTree(event.Name)
			if err != nil {
				w.log.Warn("watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			for _, f := range found {
				pending[f] = struct{}{}
			}
			return len(found) > 0
		}
	}

	if !Relevant(event.Name) {
		return false
	}
	w.log.Debug("change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
	pending[event.Name] = struct{}{}
	return true
}
