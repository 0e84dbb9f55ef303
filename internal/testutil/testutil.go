// Package testutil provides shared test helpers for setting up note directories,
// settings stores and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/plainnote/internal/index"
	"github.com/starford/plainnote/internal/settings"
	"github.com/starford/plainnote/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "plainnote-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary notes directory with a storage.Provider.
func TestDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(dir, storage.DefaultExt, Logger())
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSettings opens an initialized settings store in a temporary directory.
// When notesDir is non-empty it is recorded as the notes path.
func TestSettings(t *testing.T, notesDir string) *settings.Store {
	t.Helper()
	st, err := settings.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Initialize(settings.Defaults); err != nil {
		t.Fatal(err)
	}
	if notesDir != "" {
		if err := st.SetNotesPath(notesDir); err != nil {
			t.Fatal(err)
		}
	}
	return st
}
