// Package settings is the persistent key-value settings store. Values are
// JSON-encoded, one file per key, managed by diskv.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/peterbourgon/diskv/v3"
)

// Known keys.
const (
	KeyPath           = "general.path"
	KeyLinkAutoUpdate = "edit.linkAutoUpdate"
	KeySidebarVisible = "view.sidebar.visible"
	KeySidebarWidth   = "view.sidebar.width"
	KeyTheme          = "view.theme"
)

// Defaults are written by Initialize for keys that have never been set.
var Defaults = map[string]any{
	KeySidebarVisible: true,
	KeySidebarWidth:   200,
	KeyTheme:          "default",
	KeyLinkAutoUpdate: true,
}

// Store is a diskv-backed settings store.
type Store struct {
	d *diskv.Diskv
}

// Open opens (or creates) a settings store in dir. Reads always go to disk:
// the HTTP server and the MCP process may share dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("settings: mkdir: %w", err)
	}
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 0,
	})}, nil
}

// Initialize writes every default whose key is not present yet.
func (s *Store) Initialize(defaults map[string]any) error {
	for key, val := range defaults {
		if s.d.Has(key) {
			continue
		}
		if err := s.Set(key, val); err != nil {
			return err
		}
	}
	return nil
}

// Get decodes the value stored under key into target. It reports false when
// the key is unset.
func (s *Store) Get(key string, target any) (bool, error) {
	raw, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("settings: read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("settings: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores val under key.
func (s *Store) Set(key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("settings: encode %s: %w", key, err)
	}
	if err := s.d.Write(key, raw); err != nil {
		return fmt.Errorf("settings: write %s: %w", key, err)
	}
	return nil
}

// All returns every stored key with its raw JSON value.
func (s *Store) All(ctx context.Context) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	keys := make([]string, 0, len(Defaults)+1)
	for key := range s.d.Keys(ctx.Done()) {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if raw, err := s.d.Read(key); err == nil && json.Valid(raw) {
			out[key] = raw
		}
	}
	return out
}

// NotesPath returns general.path, or "" if no folder has been chosen.
func (s *Store) NotesPath() string {
	var p string
	if ok, _ := s.Get(KeyPath, &p); !ok {
		return ""
	}
	return p
}

// SetNotesPath stores general.path.
func (s *Store) SetNotesPath(p string) error {
	return s.Set(KeyPath, p)
}

// LinkAutoUpdate returns edit.linkAutoUpdate, true when unset.
func (s *Store) LinkAutoUpdate() bool {
	enabled := true
	if ok, err := s.Get(KeyLinkAutoUpdate, &enabled); !ok || err != nil {
		return true
	}
	return enabled
}

// SetLinkAutoUpdate stores edit.linkAutoUpdate.
func (s *Store) SetLinkAutoUpdate(enabled bool) error {
	return s.Set(KeyLinkAutoUpdate, enabled)
}
