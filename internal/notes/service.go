// Package notes coordinates every mutation of the notes directory: creation,
// rename-with-link-rewrite, in-place body writes and deletion. Each call works
// from a fresh directory snapshot, and every file it touches stamps the
// self-write clock so the change watcher can drop the echoes of its own writes.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/starford/plainnote/internal/apperr"
	"github.com/starford/plainnote/internal/index"
	"github.com/starford/plainnote/internal/links"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/settings"
	"github.com/starford/plainnote/internal/storage"
	"github.com/starford/plainnote/internal/watch"
)

// UntitledBase is the title prefix used when a note is created without a title.
const UntitledBase = "Untitled"

// DirectoryHook is called after the notes directory has been switched and
// whenever the configured directory is listed again.
type DirectoryHook func(store storage.Provider) error

// Service coordinates storage, link rewriting, the self-write clock and the index.
type Service struct {
	settings *settings.Store
	ext      string
	clock    *watch.Clock
	db       index.NoteIndex
	logger   *slog.Logger
	onOpen   DirectoryHook
}

// NewService creates a new note service. db may be nil, in which case search
// and backlinks return empty results.
func NewService(st *settings.Store, ext string, clock *watch.Clock, db index.NoteIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = watch.NewClock()
	}
	if ext == "" {
		ext = storage.DefaultExt
	}
	return &Service{settings: st, ext: ext, clock: clock, db: db, logger: logger}
}

// OnDirectoryChange registers the hook run by OpenDirectory and by listings of
// the configured directory.
func (s *Service) OnDirectoryChange(h DirectoryHook) {
	s.onOpen = h
}

// Store opens the configured notes directory. Mutations made through the
// returned provider mark the self-write clock.
func (s *Service) Store() (storage.Provider, error) {
	store, err := s.open(s.settings.NotesPath())
	if err != nil {
		return nil, err
	}
	return markedStore{Provider: store, clock: s.clock}, nil
}

func (s *Service) open(dir string) (*storage.FS, error) {
	return storage.Open(dir, s.ext, s.logger)
}

// ListNotes returns a fresh snapshot of dir, or of the configured directory
// when dir is empty. Listing the configured directory also runs the directory
// hook, which restarts the change watcher on the new baseline.
func (s *Service) ListNotes(_ context.Context, dir string) (models.Snapshot, error) {
	configured := s.settings.NotesPath()
	rebuild := dir == "" || dir == configured
	if dir == "" {
		dir = configured
	}
	store, err := s.open(dir)
	if err != nil {
		return nil, err
	}
	snap, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	if rebuild && s.onOpen != nil {
		if err := s.onOpen(store); err != nil {
			s.logger.Warn("notes: watcher restart failed",
				slog.String("path", store.Root()),
				slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// GetBody returns the content of the note with the given identity.
func (s *Service) GetBody(_ context.Context, id models.NoteIdentity) (string, error) {
	store, _, rec, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	data, err := store.Read(rec.Title)
	if err != nil {
		return "", fmt.Errorf("notes: read %s: %w: %w", rec.Title, apperr.ErrNotFound, err)
	}
	return string(data), nil
}

// CreateNote creates a note exclusively. An empty title picks the first free
// name of the Untitled, Untitled1, Untitled2, ... sequence.
func (s *Service) CreateNote(_ context.Context, title, body string) (*models.NoteRecord, error) {
	store, err := s.Store()
	if err != nil {
		return nil, err
	}
	snap, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = nextUntitled(snap.Titles())
	}

	if err := store.Create(title, []byte(body)); err != nil {
		return nil, fmt.Errorf("notes: create %q: %w: %w", title, apperr.ErrWriteFailure, err)
	}

	snap, err = store.Snapshot()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.ByTitle(title)
	if !ok {
		return nil, fmt.Errorf("notes: create %q: %w", title, apperr.ErrMetadataUnavailable)
	}
	s.logger.Info("notes: created", slog.String("title", title), slog.String("identity", string(rec.Identity)))
	s.reindex(store)
	return &rec, nil
}

// WriteNote saves body under newTitle for the note with the given identity.
// When the title changes the file is renamed first and, if enabled, links to
// the old title are rewritten across the directory. It returns false without
// touching the disk when newTitle belongs to a different note. An empty
// newTitle keeps the current title.
func (s *Service) WriteNote(_ context.Context, id models.NoteIdentity, newTitle, body string) (bool, error) {
	store, snap, rec, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if newTitle == "" {
		newTitle = rec.Title
	}

	if newTitle != rec.Title {
		if owner, taken := snap.ByTitle(newTitle); taken && owner.Identity != id {
			s.logger.Info("notes: write refused",
				slog.String("title", newTitle),
				slog.String("owner", string(owner.Identity)),
				slog.String("error", apperr.ErrTitleCollision.Error()))
			return false, nil
		}

		if err := store.Rename(rec.Title, newTitle); err != nil {
			return false, fmt.Errorf("notes: rename %q -> %q: %w: %w", rec.Title, newTitle, apperr.ErrWriteFailure, err)
		}
		if s.AutoLinkUpdate() {
			res := links.Rewrite(store, rec.Title, newTitle, s.logger)
			if len(res.Failed) > 0 {
				s.logger.Warn("notes: link rewrite incomplete",
					slog.String("from", rec.Title),
					slog.String("to", newTitle),
					slog.Int("failed", len(res.Failed)))
			}
		}
	}

	if err := store.Write(newTitle, []byte(body)); err != nil {
		return false, fmt.Errorf("notes: write %q: %w: %w", newTitle, apperr.ErrWriteFailure, err)
	}

	s.logger.Info("notes: written", slog.String("title", newTitle), slog.String("identity", string(id)))
	s.reindex(store)
	return true, nil
}

// DeleteNote removes the note with the given identity.
func (s *Service) DeleteNote(_ context.Context, id models.NoteIdentity) error {
	store, _, rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := store.Delete(rec.Title); err != nil {
		return fmt.Errorf("notes: delete %q: %w: %w", rec.Title, apperr.ErrDeleteFailure, err)
	}
	s.logger.Info("notes: deleted", slog.String("title", rec.Title), slog.String("identity", string(id)))
	s.reindex(store)
	return nil
}

// SetAutoLinkUpdate stores the edit.linkAutoUpdate setting.
func (s *Service) SetAutoLinkUpdate(enabled bool) error {
	return s.settings.SetLinkAutoUpdate(enabled)
}

// AutoLinkUpdate reports whether renames rewrite links.
func (s *Service) AutoLinkUpdate() bool {
	return s.settings.LinkAutoUpdate()
}

// LastSelfWrite returns the time of the most recent write made by this
// process. It makes Service the watch.SelfWriteSource of the change watcher.
func (s *Service) LastSelfWrite() time.Time {
	return s.clock.LastSelfWrite()
}

// OpenDirectory switches the notes directory: it validates dir, stores it as
// general.path, rebuilds the index and runs the directory hook.
func (s *Service) OpenDirectory(_ context.Context, dir string) (models.Snapshot, error) {
	store, err := s.open(dir)
	if err != nil {
		return nil, err
	}
	if err := s.settings.SetNotesPath(store.Root()); err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := s.db.Reset(); err != nil {
			s.logger.Warn("notes: index reset failed", slog.String("error", err.Error()))
		}
	}
	s.reindex(store)
	if s.onOpen != nil {
		if err := s.onOpen(store); err != nil {
			return nil, err
		}
	}
	s.logger.Info("notes: directory opened", slog.String("path", store.Root()))
	return store.Snapshot()
}

// Refresh re-syncs the index with the configured directory.
func (s *Service) Refresh(_ context.Context) error {
	store, err := s.Store()
	if err != nil {
		return err
	}
	s.reindex(store)
	return nil
}

// Search runs a full-text query over the configured directory.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if _, err := s.Store(); err != nil {
		return nil, err
	}
	if s.db == nil || query == "" {
		return []index.SearchResult{}, nil
	}
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Backlinks returns the titles of notes linking to title.
func (s *Service) Backlinks(_ context.Context, title string) ([]string, error) {
	if _, err := s.Store(); err != nil {
		return nil, err
	}
	if s.db == nil {
		return []string{}, nil
	}
	bl, err := s.db.Backlinks(title)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

// CopyAttachment copies r into the notes directory under the base name of name.
func (s *Service) CopyAttachment(_ context.Context, name string, r io.Reader) (string, int64, error) {
	store, err := s.Store()
	if err != nil {
		return "", 0, err
	}
	path, n, err := store.CopyIn(name, r)
	if err != nil {
		return "", 0, fmt.Errorf("notes: copy %q: %w: %w", name, apperr.ErrWriteFailure, err)
	}
	s.logger.Info("notes: attachment copied", slog.String("path", path), slog.Int64("bytes", n))
	return path, n, nil
}

// lookup resolves id against a fresh snapshot of the configured directory.
func (s *Service) lookup(id models.NoteIdentity) (storage.Provider, models.Snapshot, models.NoteRecord, error) {
	store, err := s.Store()
	if err != nil {
		return nil, nil, models.NoteRecord{}, err
	}
	snap, err := store.Snapshot()
	if err != nil {
		return nil, nil, models.NoteRecord{}, err
	}
	rec, ok := snap.ByIdentity(id)
	if !ok {
		return nil, nil, models.NoteRecord{}, fmt.Errorf("notes: %s: %w", id, apperr.ErrNotFound)
	}
	return store, snap, rec, nil
}

func (s *Service) reindex(store storage.Provider) {
	if s.db == nil {
		return
	}
	if err := index.Sync(s.db, store, s.logger); err != nil {
		s.logger.Warn("notes: index sync failed", slog.String("error", err.Error()))
	}
}

func nextUntitled(taken map[string]struct{}) string {
	if _, ok := taken[UntitledBase]; !ok {
		return UntitledBase
	}
	for i := 1; ; i++ {
		name := UntitledBase + strconv.Itoa(i)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Settings returns every stored setting with its raw JSON value.
func (s *Service) Settings(ctx context.Context) map[string]json.RawMessage {
	return s.settings.All(ctx)
}
