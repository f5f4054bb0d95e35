// Package reload watches configuration files and signals when they change so
// the server can restart with fresh settings.
package reload

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"llmapi/internal/common/fsutil"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	fw       *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	changes  chan struct{}
	log      zerolog.Logger
}

// New watches paths. Directories are watched rather than the files
// themselves so files replaced by rename, or created later, are still seen.
// Empty paths and paths in missing directories are skipped.
func New(paths []string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fw:       fw,
		files:    make(map[string]struct{}),
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		log:      log.With().Str("component", "reload").Logger(),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := fsutil.Resolve(p)
		if err != nil {
			w.log.Warn().Err(err).Str("file", p).Msg("cannot resolve; skipping")
			continue
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if !fsutil.PathExists(dir) {
			w.log.Warn().Str("dir", dir).Msg("watch directory missing; skipping")
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
		dirs[dir] = struct{}{}
	}
	return w, nil
}

// Changes receives one value per debounced burst of changes. Bursts that
// arrive while a value is pending are merged into it.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run processes filesystem events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("config change")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	_, ok := w.files[filepath.Clean(ev.Name)]
	return ok
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
