package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/starford/plainnote/internal/apperr"
	"github.com/starford/plainnote/internal/identity"
	"github.com/starford/plainnote/internal/models"
)

// DefaultExt is the note file extension used when none is configured.
const DefaultExt = ".md"

// FS implements Provider backed by a single flat directory.
type FS struct {
	root   string // absolute path to the notes directory
	ext    string
	logger *slog.Logger
}

var _ Provider = (*FS)(nil)

// Open creates an FS rooted at dir. A leading ~ expands to the home directory.
// It fails with apperr.ErrDirectoryUnavailable when dir is empty, missing or
// not a directory.
func Open(dir, ext string, logger *slog.Logger) (*FS, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: no directory configured: %w", apperr.ErrDirectoryUnavailable)
	}
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if logger == nil {
		logger = slog.Default()
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: expand root: %w: %w", apperr.ErrDirectoryUnavailable, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w: %w", apperr.ErrDirectoryUnavailable, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrDirectoryUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s: %w", abs, apperr.ErrDirectoryUnavailable)
	}
	return &FS{root: abs, ext: ext, logger: logger}, nil
}

// Root implements Provider.
func (f *FS) Root() string { return f.root }

// Ext implements Provider.
func (f *FS) Ext() string { return f.ext }

// notePath maps a title to its file path and rejects titles that would leave
// the notes directory.
func (f *FS) notePath(title string) (string, error) {
	return f.safeName(title + f.ext)
}

// safeName accepts only a plain file name directly under root.
func (f *FS) safeName(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("storage: invalid file name: %q", name)
	}
	return filepath.Join(f.root, name), nil
}

// IsNote reports whether a directory entry name is a visible note file.
func (f *FS) IsNote(name string) bool {
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == f.ext
}

// Title strips the note extension from a file name.
func (f *FS) Title(name string) string {
	return strings.TrimSuffix(name, f.ext)
}

// Snapshot lists root and returns one record per note file, sorted by
// modification time descending. Entries whose metadata cannot be read are
// skipped. Ties keep directory listing order.
func (f *FS) Snapshot() (models.Snapshot, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w: %w", f.root, apperr.ErrDirectoryUnavailable, err)
	}

	out := make(models.Snapshot, 0, len(entries))
	byTitle := make(map[string]int, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !f.IsNote(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			f.logger.Debug("storage: skip entry", slog.String("name", name), slog.String("error", err.Error()))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		id, err := identity.ResolveInfo(filepath.Join(f.root, name), info)
		if err != nil {
			f.logger.Debug("storage: skip entry", slog.String("name", name), slog.String("error", err.Error()))
			continue
		}
		rec := models.NoteRecord{Identity: id, Title: f.Title(name), ModTime: info.ModTime()}
		if i, ok := byTitle[rec.Title]; ok {
			out[i] = rec
			continue
		}
		byTitle[rec.Title] = len(out)
		out = append(out, rec)
	}

	slices.SortStableFunc(out, func(a, b models.NoteRecord) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return out, nil
}

// Read returns the raw bytes of a note.
func (f *FS) Read(title string) ([]byte, error) {
	abs, err := f.notePath(title)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", title, err)
	}
	return data, nil
}

// Create writes a new note file. It never overwrites an existing file.
func (f *FS) Create(title string, content []byte) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", title, err)
	}
	return finish(file, content, title)
}

// Write replaces a note's content in place: truncate, write, fsync. The file
// keeps its inode, so its identity survives the write. The file must exist.
func (f *FS) Write(title string, content []byte) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(abs, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", title, err)
	}
	return finish(file, content, title)
}

func finish(file *os.File, content []byte, title string) error {
	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("storage: write %s: %w", title, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("storage: fsync %s: %w", title, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", title, err)
	}
	return nil
}

// Rename moves oldTitle to newTitle. It refuses to replace a different file
// already present under newTitle; a case-only rename of the same file is allowed.
func (f *FS) Rename(oldTitle, newTitle string) error {
	absOld, err := f.notePath(oldTitle)
	if err != nil {
		return err
	}
	absNew, err := f.notePath(newTitle)
	if err != nil {
		return err
	}
	if existing, statErr := os.Lstat(absNew); statErr == nil {
		src, srcErr := os.Lstat(absOld)
		if srcErr != nil || !os.SameFile(src, existing) {
			return fmt.Errorf("storage: rename %s -> %s: %w", oldTitle, newTitle, fs.ErrExist)
		}
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: rename %s -> %s: %w", oldTitle, newTitle, err)
	}
	return nil
}

// Delete removes a note file.
func (f *FS) Delete(title string) error {
	abs, err := f.notePath(title)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", title, err)
	}
	return nil
}

// CopyIn copies r into root under the base name of name, replacing any
// existing file of that name.
func (f *FS) CopyIn(name string, r io.Reader) (string, int64, error) {
	abs, err := f.safeName(filepath.Base(name))
	if err != nil {
		return "", 0, err
	}
	dst, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("storage: create %s: %w", name, err)
	}
	n, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, errors.Join(fmt.Errorf("storage: copy %s", name), err)
	}
	return abs, n, nil
}
