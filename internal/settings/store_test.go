package settings

import (
	"context"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestNotesPath_UnsetIsEmpty(t *testing.T) {
	s := testStore(t)
	if p := s.NotesPath(); p != "" {
		t.Errorf("NotesPath = %q, want empty", p)
	}
	if err := s.SetNotesPath("/tmp/notes"); err != nil {
		t.Fatal(err)
	}
	if p := s.NotesPath(); p != "/tmp/notes" {
		t.Errorf("NotesPath = %q", p)
	}
}

func TestLinkAutoUpdate_DefaultsTrue(t *testing.T) {
	s := testStore(t)
	if !s.LinkAutoUpdate() {
		t.Error("unset linkAutoUpdate should be true")
	}
	_ = s.SetLinkAutoUpdate(false)
	if s.LinkAutoUpdate() {
		t.Error("linkAutoUpdate should be false after Set")
	}
}

func TestInitialize_KeepsExistingValues(t *testing.T) {
	s := testStore(t)
	_ = s.Set(KeyTheme, "dark")
	if err := s.Initialize(Defaults); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var theme string
	if ok, _ := s.Get(KeyTheme, &theme); !ok || theme != "dark" {
		t.Errorf("theme = %q, want dark", theme)
	}
	var width int
	if ok, _ := s.Get(KeySidebarWidth, &width); !ok || width != 200 {
		t.Errorf("width = %d, want 200", width)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s1, _ := Open(dir)
	_ = s1.SetNotesPath("/data/notes")

	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p := s2.NotesPath(); p != "/data/notes" {
		t.Errorf("reopened NotesPath = %q", p)
	}
}

func TestAll(t *testing.T) {
	s := testStore(t)
	_ = s.Initialize(Defaults)
	_ = s.SetNotesPath("/x")

	all := s.All(context.Background())
	if len(all) != len(Defaults)+1 {
		t.Errorf("len(All) = %d, want %d", len(all), len(Defaults)+1)
	}
	if string(all[KeyPath]) != `"/x"` {
		t.Errorf("general.path = %s", all[KeyPath])
	}
}

func TestSharedDirSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	server, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mcp, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	if !server.LinkAutoUpdate() {
		t.Fatal("unset linkAutoUpdate should be true")
	}
	if p := server.NotesPath(); p != "" {
		t.Fatalf("NotesPath = %q", p)
	}

	if err := mcp.SetLinkAutoUpdate(false); err != nil {
		t.Fatal(err)
	}
	if err := mcp.SetNotesPath("/srv/notes"); err != nil {
		t.Fatal(err)
	}

	if server.LinkAutoUpdate() {
		t.Error("change by another store on the same dir not visible")
	}
	if p := server.NotesPath(); p != "/srv/notes" {
		t.Errorf("NotesPath = %q, want /srv/notes", p)
	}

	_ = mcp.SetLinkAutoUpdate(true)
	if !server.LinkAutoUpdate() {
		t.Error("second change not visible")
	}
}
