package rules

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Watcher invalidates a Loader when rules.yaml or a profile changes on disk.
type Watcher struct {
	loader   *Loader
	fs       *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string) // called after the cache is dropped

	mu      sync.Mutex
	timer   *time.Timer
	pending string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher watches the loader's base directory and its profiles/
// subdirectory. debounce <= 0 means 200ms.
func NewWatcher(l *Loader, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if l.Dir() == "" {
		return nil, errors.New("rules watcher: loader has no base directory")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "rules watcher")
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		loader:   l,
		fs:       fw,
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start registers the directories and begins delivering events.
func (w *Watcher) Start() error {
	dir := w.loader.Dir()
	if err := w.fs.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	prof := filepath.Join(dir, "profiles")
	if fi, err := os.Stat(prof); err == nil && fi.IsDir() {
		if err := w.fs.Add(prof); err != nil {
			return errors.Wrapf(err, "watch %s", prof)
		}
	}
	log.Info().Str("dir", dir).Msg("watching rules")

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.fs.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("rules watcher")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if ext := strings.ToLower(filepath.Ext(ev.Name)); ext != ".yaml" && ext != ".yml" {
		return
	}

	// editors emit bursts; fire once after the last event
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = ev.Name
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path := w.pending
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}
	w.loader.Invalidate()
	log.Info().Str("path", path).Msg("rules changed, cache invalidated")
	if w.onChange != nil {
		w.onChange(path)
	}
}
