package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/plainnote/internal/apperr"
	"github.com/starford/plainnote/internal/identity"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/storage"
	"github.com/starford/plainnote/internal/testutil"
	"github.com/starford/plainnote/internal/watch"
)

func newService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	st := testutil.TestSettings(t, dir)
	svc := NewService(st, storage.DefaultExt, watch.NewClock(), testutil.TestDB(t), testutil.Logger())
	return svc, dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCreateAndGetBody_RoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.CreateNote(ctx, "Hello", "hello body\n")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if rec.Title != "Hello" || rec.Identity == "" {
		t.Fatalf("record = %+v", rec)
	}
	body, err := svc.GetBody(ctx, rec.Identity)
	if err != nil {
		t.Fatalf("GetBody: %v", err)
	}
	if body != "hello body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestCreateNote_UntitledSequence(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	want := []string{"Untitled", "Untitled1", "Untitled2"}
	for _, w := range want {
		rec, err := svc.CreateNote(ctx, "", "")
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		if rec.Title != w {
			t.Errorf("title = %q, want %q", rec.Title, w)
		}
	}
}

func TestCreateNote_ExistingTitleFails(t *testing.T) {
	svc, dir := newService(t)
	writeFile(t, dir, "Taken.md", "original")

	rec, err := svc.CreateNote(context.Background(), "Taken", "new")
	if !errors.Is(err, apperr.ErrWriteFailure) {
		t.Fatalf("err = %v, want ErrWriteFailure", err)
	}
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}
	if got := readFile(t, dir, "Taken.md"); got != "original" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestCreateNote_NoDirectory(t *testing.T) {
	st := testutil.TestSettings(t, "")
	svc := NewService(st, "", nil, nil, nil)

	_, err := svc.CreateNote(context.Background(), "x", "")
	if !errors.Is(err, apperr.ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestWriteNote_RenameKeepsIdentity(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, err := svc.CreateNote(ctx, "Old", "v1")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := svc.WriteNote(ctx, rec.Identity, "New", "v2")
	if err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Old.md")); !os.IsNotExist(err) {
		t.Error("old file still present")
	}
	if got := readFile(t, dir, "New.md"); got != "v2" {
		t.Errorf("body = %q", got)
	}
	id, err := identity.Resolve(filepath.Join(dir, "New.md"))
	if err != nil {
		t.Fatal(err)
	}
	if id != rec.Identity {
		t.Errorf("identity changed: %s -> %s", rec.Identity, id)
	}
}

func TestWriteNote_CollisionLeavesDiskIntact(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	a, _ := svc.CreateNote(ctx, "A", "alpha")
	_, _ = svc.CreateNote(ctx, "B", "beta")

	ok, err := svc.WriteNote(ctx, a.Identity, "B", "changed")
	if err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	if ok {
		t.Fatal("WriteNote onto another note's title should return false")
	}
	if got := readFile(t, dir, "A.md"); got != "alpha" {
		t.Errorf("A.md = %q", got)
	}
	if got := readFile(t, dir, "B.md"); got != "beta" {
		t.Errorf("B.md = %q", got)
	}
}

func TestWriteNote_SameTitleWritesInPlace(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, _ := svc.CreateNote(ctx, "Same", "one")

	ok, err := svc.WriteNote(ctx, rec.Identity, "Same", "two")
	if err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if got := readFile(t, dir, "Same.md"); got != "two" {
		t.Errorf("body = %q", got)
	}
	snap, _ := svc.ListNotes(ctx, "")
	if _, found := snap.ByIdentity(rec.Identity); !found {
		t.Error("identity lost after in-place write")
	}
}

func TestWriteNote_EmptyTitleKeepsCurrent(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, _ := svc.CreateNote(ctx, "Keep", "one")

	if ok, err := svc.WriteNote(ctx, rec.Identity, "", "two"); err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if got := readFile(t, dir, "Keep.md"); got != "two" {
		t.Errorf("body = %q", got)
	}
}

func TestWriteNote_UnknownIdentity(t *testing.T) {
	svc, _ := newService(t)
	ok, err := svc.WriteNote(context.Background(), "0-0", "x", "y")
	if ok || !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("WriteNote = %v, %v; want false, ErrNotFound", ok, err)
	}
}

func TestWriteNote_RenameFailurePreventsBodyWrite(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, _ := svc.CreateNote(ctx, "Src", "original")

	// A directory is invisible to the snapshot but blocks the rename.
	if err := os.Mkdir(filepath.Join(dir, "Blocked.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, title := range []string{"Blocked", "sub/dir"} {
		ok, err := svc.WriteNote(ctx, rec.Identity, title, "new body")
		if ok || !errors.Is(err, apperr.ErrWriteFailure) {
			t.Fatalf("WriteNote(%q) = %v, %v; want false, ErrWriteFailure", title, ok, err)
		}
		if got := readFile(t, dir, "Src.md"); got != "original" {
			t.Errorf("body written despite failed rename to %q: %q", title, got)
		}
	}
}

func TestWriteNote_RewritesLinks(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, _ := svc.CreateNote(ctx, "Foo", "foo")
	writeFile(t, dir, "Ref.md", "see [[Foo]] and [[FooBar]]")

	if ok, err := svc.WriteNote(ctx, rec.Identity, "Baz", "foo"); err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if got := readFile(t, dir, "Ref.md"); got != "see [[Baz]] and [[FooBar]]" {
		t.Errorf("Ref.md = %q", got)
	}
	bl, err := svc.Backlinks(ctx, "Baz")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 1 || bl[0] != "Ref" {
		t.Errorf("backlinks(Baz) = %v, want [Ref]", bl)
	}
}

func TestWriteNote_LinkAutoUpdateDisabled(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	if err := svc.SetAutoLinkUpdate(false); err != nil {
		t.Fatal(err)
	}
	if svc.AutoLinkUpdate() {
		t.Fatal("AutoLinkUpdate should be false")
	}
	rec, _ := svc.CreateNote(ctx, "Foo", "foo")
	writeFile(t, dir, "Ref.md", "see [[Foo]]")

	if ok, err := svc.WriteNote(ctx, rec.Identity, "Baz", "foo"); err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if got := readFile(t, dir, "Ref.md"); got != "see [[Foo]]" {
		t.Errorf("Ref.md rewritten with auto-update off: %q", got)
	}
}

func TestDeleteNote(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	rec, _ := svc.CreateNote(ctx, "Gone", "bye")

	if err := svc.DeleteNote(ctx, rec.Identity); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Gone.md")); !os.IsNotExist(err) {
		t.Error("file still present")
	}
	if err := svc.DeleteNote(ctx, rec.Identity); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListNotes_Order(t *testing.T) {
	svc, dir := newService(t)
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"t1.md", "t2.md", "t3.md"} {
		writeFile(t, dir, name, name)
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(filepath.Join(dir, name), mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := svc.ListNotes(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range snap {
		got = append(got, r.Title)
	}
	if strings.Join(got, ",") != "t3,t2,t1" {
		t.Errorf("order = %v, want t3,t2,t1", got)
	}
}

func TestListNotes_ExplicitDirectory(t *testing.T) {
	svc, _ := newService(t)
	other := t.TempDir()
	writeFile(t, other, "elsewhere.md", "x")

	snap, err := svc.ListNotes(context.Background(), other)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 1 || snap[0].Title != "elsewhere" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _ = svc.CreateNote(ctx, "Recipe", "flour\nsugar and butter\neggs")

	res, err := svc.Search(ctx, "sugar", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Title != "Recipe" {
		t.Fatalf("results = %+v", res)
	}
	if len(res[0].Lines) != 1 || res[0].Lines[0].Num != 2 {
		t.Errorf("lines = %+v", res[0].Lines)
	}
}

func TestOpenDirectory(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	next := t.TempDir()
	writeFile(t, next, "There.md", "links [[Here]]")

	var hooked string
	svc.OnDirectoryChange(func(store storage.Provider) error {
		hooked = store.Root()
		return nil
	})

	snap, err := svc.OpenDirectory(ctx, next)
	if err != nil {
		t.Fatalf("OpenDirectory: %v", err)
	}
	if len(snap) != 1 || snap[0].Title != "There" {
		t.Errorf("snapshot = %+v", snap)
	}
	if hooked == "" {
		t.Error("directory hook not called")
	}
	if bl, _ := svc.Backlinks(ctx, "Here"); len(bl) != 1 {
		t.Errorf("backlinks after open = %v", bl)
	}

	if _, err := svc.OpenDirectory(ctx, filepath.Join(next, "missing")); !errors.Is(err, apperr.ErrDirectoryUnavailable) {
		t.Errorf("err = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestCopyAttachment(t *testing.T) {
	svc, dir := newService(t)
	path, n, err := svc.CopyAttachment(context.Background(), "/some/where/pic.png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("CopyAttachment: %v", err)
	}
	if n != 3 || path != filepath.Join(dir, "pic.png") {
		t.Errorf("path = %q, n = %d", path, n)
	}
	snap, _ := svc.ListNotes(context.Background(), "")
	if len(snap) != 0 {
		t.Errorf("attachment visible as a note: %+v", snap)
	}
}

func TestSelfWritesAreNotReported(t *testing.T) {
	svc, dir := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []models.Event
	mgr := watch.NewManager(ctx, svc, func(e models.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}, testutil.Logger(), watch.WithWindow(500*time.Millisecond))
	defer mgr.Close()

	store, err := svc.Store()
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Restart(store); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	rec, err := svc.CreateNote(ctx, "Mine", "self")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.WriteNote(ctx, rec.Identity, "Mine", "self again"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(800 * time.Millisecond)

	mu.Lock()
	for _, e := range events {
		if e.Title == "Mine" {
			t.Errorf("own write reported: %+v", e)
		}
	}
	mu.Unlock()

	writeFile(t, dir, "Theirs.md", "external")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		for _, e := range events {
			if e.Kind == models.EventAdded && e.Title == "Theirs" {
				mu.Unlock()
				return
			}
		}
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("external write after the window was not reported")
}

// recorder collects watcher notifications.
type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) emit(e models.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

func (r *recorder) waitFor(t *testing.T, kind models.EventKind, title string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range r.snapshot() {
			if e.Kind == kind && e.Title == title {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("no %s event for %q, got %+v", kind, title, r.snapshot())
}

func TestWriteNote_RenameOfHeavilyLinkedNoteIsNotReported(t *testing.T) {
	dir := t.TempDir()
	st := testutil.TestSettings(t, dir)
	svc := NewService(st, storage.DefaultExt, nil, nil, testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeFile(t, dir, "Target.md", "target")
	for i := 0; i < 1500; i++ {
		writeFile(t, dir, fmt.Sprintf("n%04d.md", i), "see [[Target]]")
	}
	id, err := identity.Resolve(filepath.Join(dir, "Target.md"))
	if err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	mgr := watch.NewManager(ctx, svc, rec.emit, testutil.Logger())
	defer mgr.Close()
	svc.OnDirectoryChange(mgr.Restart)
	if _, err := svc.ListNotes(ctx, ""); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	ok, err := svc.WriteNote(ctx, id, "Renamed", "target")
	if err != nil || !ok {
		t.Fatalf("WriteNote = %v, %v", ok, err)
	}
	if got := readFile(t, dir, "n1499.md"); got != "see [[Renamed]]" {
		t.Fatalf("link not rewritten: %q", got)
	}
	time.Sleep(500 * time.Millisecond)

	if evs := rec.snapshot(); len(evs) != 0 {
		t.Fatalf("own rename produced %d notifications, first %+v", len(evs), evs[0])
	}

	writeFile(t, dir, "Theirs.md", "external")
	rec.waitFor(t, models.EventAdded, "Theirs")
}

func TestListNotes_RestartsStoppedWatcher(t *testing.T) {
	svc, dir := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	mgr := watch.NewManager(ctx, svc, rec.emit, testutil.Logger())
	defer mgr.Close()
	svc.OnDirectoryChange(mgr.Restart)

	if _, err := svc.ListNotes(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if mgr.Root() != dir {
		t.Fatalf("watcher root = %q, want %q", mgr.Root(), dir)
	}
	time.Sleep(100 * time.Millisecond)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for mgr.Root() != "" && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if mgr.Root() != "" {
		t.Fatalf("watcher of a removed directory still reported at %q", mgr.Root())
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ListNotes(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if mgr.Root() != dir {
		t.Fatalf("watcher root after listing = %q, want %q", mgr.Root(), dir)
	}
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "External.md", "from elsewhere")
	rec.waitFor(t, models.EventAdded, "External")
}

func TestListNotes_OtherDirectoryKeepsWatcher(t *testing.T) {
	svc, _ := newService(t)
	calls := 0
	svc.OnDirectoryChange(func(storage.Provider) error {
		calls++
		return nil
	})

	if _, err := svc.ListNotes(context.Background(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("hook ran %d times for a directory other than the configured one", calls)
	}
	if _, err := svc.ListNotes(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("hook ran %d times for the configured directory, want 1", calls)
	}
}

func TestLastSelfWrite_AdvancesOnEveryMutation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	var src watch.SelfWriteSource = svc
	if !src.LastSelfWrite().IsZero() {
		t.Fatal("fresh service reports a self-write")
	}

	rec, err := svc.CreateNote(ctx, "a", "x")
	if err != nil {
		t.Fatal(err)
	}
	afterCreate := src.LastSelfWrite()
	if afterCreate.IsZero() {
		t.Fatal("create not marked")
	}
	time.Sleep(5 * time.Millisecond)
	if err := svc.DeleteNote(ctx, rec.Identity); err != nil {
		t.Fatal(err)
	}
	if !src.LastSelfWrite().After(afterCreate) {
		t.Error("delete not marked")
	}
}
