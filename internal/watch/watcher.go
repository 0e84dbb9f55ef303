// Package watch turns filesystem events in the notes directory into
// added/changed notifications, ignoring the application's own writes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/plainnote/internal/identity"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/storage"
)

// DefaultWindow is how long after a self-write incoming events are discarded.
const DefaultWindow = 100 * time.Millisecond

// renameGrace is how long a renamed-away identity waits for its new name to
// show up before it is forgotten.
const renameGrace = 5 * time.Second

// EmitFunc receives notifications produced by a Watcher.
type EmitFunc func(models.Event)

// Option configures a Watcher.
type Option func(*Watcher)

// WithWindow overrides the self-write suppression window.
func WithWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.window = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithNow overrides the time source used for suppression checks.
func WithNow(now func() time.Time) Option {
	return func(w *Watcher) {
		w.now = now
	}
}

// Watcher observes one notes directory. It is a hint generator: callers must
// still rebuild a snapshot to learn the authoritative state.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	ext    string
	clock  SelfWriteSource
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	// known maps titles to identities as last observed. departed holds
	// identities whose title was renamed away, keyed to the time they left.
	known    map[string]models.NoteIdentity
	departed map[models.NoteIdentity]time.Time
}

// New creates a watcher on store's directory with a baseline taken from a
// fresh snapshot.
func New(store storage.Provider, clock SelfWriteSource, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:     store.Root(),
		ext:      store.Ext(),
		clock:    clock,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   slog.Default(),
		known:    map[string]models.NoteIdentity{},
		departed: map[models.NoteIdentity]time.Time{},
	}
	for _, opt := range opts {
		opt(w)
	}

	snap, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	for _, rec := range snap {
		w.known[rec.Title] = rec.Identity
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", w.root, err)
	}
	w.fsw = fsw
	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

// Run processes events until ctx is cancelled, the watched directory goes
// away, or fsnotify closes its channels. Watcher errors are logged only.
func (w *Watcher) Run(ctx context.Context, emit EmitFunc) error {
	w.logger.Info("watcher: started", slog.String("root", w.root))
	defer w.logger.Info("watcher: stopped", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Name == w.root && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Warn("watcher: directory removed", slog.String("root", w.root))
				return nil
			}
			if e, ok := w.handle(ev); ok && emit != nil {
				w.logger.Debug("watcher: event",
					slog.String("kind", string(e.Kind)),
					slog.String("title", e.Title))
				emit(e)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// suppressed reports whether an event arriving now is presumed self-caused.
func (w *Watcher) suppressed() bool {
	if w.clock == nil {
		return false
	}
	last := w.clock.LastSelfWrite()
	return !last.IsZero() && w.now().Sub(last) < w.window
}

// handle updates the baseline for one fsnotify event and returns the
// notification it maps to, if any. Suppressed events still update the baseline.
func (w *Watcher) handle(ev fsnotify.Event) (models.Event, bool) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || filepath.Ext(name) != w.ext {
		return models.Event{}, false
	}
	title := strings.TrimSuffix(name, w.ext)
	quiet := w.suppressed()
	w.expireDeparted()

	switch {
	case ev.Op&fsnotify.Rename != 0:
		if id, ok := w.known[title]; ok {
			w.departed[id] = w.now()
			delete(w.known, title)
		}
		return models.Event{}, false

	case ev.Op&fsnotify.Remove != 0:
		if id, ok := w.known[title]; ok {
			delete(w.departed, id)
			delete(w.known, title)
		}
		return models.Event{}, false

	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		id, err := identity.Resolve(ev.Name)
		if err != nil {
			delete(w.known, title)
			return models.Event{}, false
		}
		prev, seen := w.known[title]
		w.known[title] = id
		_, moved := w.departed[id]
		delete(w.departed, id)

		if quiet {
			return models.Event{}, false
		}
		switch {
		case seen:
			return models.Event{Kind: models.EventChanged, Title: title, OldIdentity: prev, NewIdentity: id}, true
		case moved:
			return models.Event{Kind: models.EventChanged, Title: title, OldIdentity: id, NewIdentity: id}, true
		default:
			return models.Event{Kind: models.EventAdded, Title: title, NewIdentity: id}, true
		}
	}
	return models.Event{}, false
}

// expireDeparted drops renamed-away identities older than renameGrace; they
// left the directory.
func (w *Watcher) expireDeparted() {
	now := w.now()
	for id, at := range w.departed {
		if now.Sub(at) > renameGrace {
			delete(w.departed, id)
		}
	}
}
