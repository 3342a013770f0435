package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/petitpdf/internal/extract"
	"github.com/hyperjump/petitpdf/internal/extract/extracttest"
	"github.com/hyperjump/petitpdf/internal/fileid"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/internal/storage"
	"github.com/hyperjump/petitpdf/internal/syncclient"
	"go.uber.org/zap"
)

type stubSyncer struct {
	mu      sync.Mutex
	nextID  int
	records []models.BookmarkRecord
	listErr error
}

func (s *stubSyncer) ListBookmarks(ctx context.Context, documentID string) ([]models.BookmarkRecord, error) {
	return s.records, s.listErr
}

func (s *stubSyncer) CreateBookmark(ctx context.Context, documentID string, page int) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return map[string]string{syncclient.BookmarkIDKey: "bm-" + string(rune('a'+s.nextID))}, nil
}

func (s *stubSyncer) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	return nil
}

// blockingSyncer holds every create call until its context ends.
type blockingSyncer struct {
	stubSyncer
	started chan struct{}
}

func (b *blockingSyncer) CreateBookmark(ctx context.Context, documentID string, page int) (map[string]string, error) {
	close(b.started)
	<-ctx.Done()
	return nil, &syncclient.Failure{Message: ctx.Err().Error()}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLibrary(t *testing.T) (*Library, *testClock, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	clock := &testClock{t: time.Date(2023, 9, 1, 8, 0, 0, 0, time.UTC)}
	lib := New(store, extract.NewPDFInspector(), &stubSyncer{},
		WithLogger(zap.NewNop()),
		WithClock(clock.now),
	)
	return lib, clock, dir
}

func TestLibrary_Import(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	ctx := context.Background()
	path := extracttest.WritePDF(t, dir, "korean-history.pdf", 4)

	doc, err := lib.Import(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "korean-history.pdf" || doc.NumPages != 4 || doc.LearningTime != 0 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.ID != fileid.FileDocID(path) {
		t.Errorf("id = %s, want id derived from path", doc.ID)
	}
	if doc.CreatedDate() != "2023.09.01" {
		t.Errorf("created date = %s", doc.CreatedDate())
	}
}

func TestLibrary_ImportIsIdempotent(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	ctx := context.Background()
	path := extracttest.WritePDF(t, dir, "math.pdf", 3)

	first, err := lib.Import(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lib.OpenDetail(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.CloseDetail(ctx); err != nil {
		t.Fatal(err)
	}

	again, err := lib.Import(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Errorf("re-import changed id: %s vs %s", again.ID, first.ID)
	}
	docs, err := lib.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("documents after re-import = %d, want 1", len(docs))
	}
}

func TestLibrary_ImportRejectsNonPDF(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Import(context.Background(), path); !errors.Is(err, extract.ErrNotPDF) {
		t.Errorf("Import(.txt) = %v, want ErrNotPDF", err)
	}
	if _, err := lib.Import(context.Background(), filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

type pageCountInspector struct {
	pages int
}

func (p pageCountInspector) Inspect(path string) (*extract.Info, error) {
	return &extract.Info{Path: path, Name: filepath.Base(path), NumPages: p.pages}, nil
}

func TestLibrary_ImportRejectsDocumentWithoutPages(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	lib := New(store, pageCountInspector{pages: 0}, &stubSyncer{})
	path := extracttest.WritePDF(t, dir, "blank.pdf", 1)

	if _, err := lib.Import(context.Background(), path); !errors.Is(err, extract.ErrNoPages) {
		t.Fatalf("Import(0 pages) = %v, want ErrNoPages", err)
	}
	if n, _ := store.CountDocuments(context.Background()); n != 0 {
		t.Errorf("documents stored = %d, want 0", n)
	}
}

func TestLibrary_ListNewestFirst(t *testing.T) {
	lib, clock, dir := newTestLibrary(t)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := lib.Import(ctx, extracttest.WritePDF(t, dir, name, 1)); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Hour)
	}
	docs, err := lib.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	if len(names) != 3 || names[0] != "c.pdf" || names[2] != "a.pdf" {
		t.Errorf("order = %v, want newest first", names)
	}
}

func TestLibrary_ImportDirectory(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	inbox := filepath.Join(dir, "inbox")
	if err := os.MkdirAll(filepath.Join(inbox, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	extracttest.WritePDF(t, inbox, "one.pdf", 2)
	extracttest.WritePDF(t, filepath.Join(inbox, "nested"), "two.PDF", 5)
	if err := os.WriteFile(filepath.Join(inbox, "skip.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	n, err := lib.ImportDirectory(context.Background(), inbox)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
}

func TestLibrary_SessionWriteBack(t *testing.T) {
	lib, clock, dir := newTestLibrary(t)
	ctx := context.Background()
	doc, err := lib.Import(ctx, extracttest.WritePDF(t, dir, "bio.pdf", 6))
	if err != nil {
		t.Fatal(err)
	}

	ctrl, err := lib.OpenDetail(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.SetPage(2); err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.ToggleBookmark(ctx); err != nil {
		t.Fatal(err)
	}
	clock.advance(90 * time.Second)

	closed, err := lib.CloseDetail(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if closed.LearningTime != 90 {
		t.Errorf("learning time = %d, want 90", closed.LearningTime)
	}
	stored, err := lib.Get(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LearningTime != 90 || !stored.IsBookmarked(2) {
		t.Errorf("stored document not written back: %+v", stored)
	}
	if _, err := lib.CloseDetail(ctx); !errors.Is(err, ErrNoDetail) {
		t.Errorf("second CloseDetail = %v, want ErrNoDetail", err)
	}
}

func TestLibrary_OpeningAnotherDocumentClosesFirst(t *testing.T) {
	lib, clock, dir := newTestLibrary(t)
	ctx := context.Background()
	first, _ := lib.Import(ctx, extracttest.WritePDF(t, dir, "first.pdf", 2))
	second, _ := lib.Import(ctx, extracttest.WritePDF(t, dir, "second.pdf", 2))

	firstCtrl, err := lib.OpenDetail(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	clock.advance(30 * time.Second)
	if _, err := lib.OpenDetail(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	if !firstCtrl.Snapshot().Closed {
		t.Error("first session should be closed")
	}
	stored, _ := lib.Get(ctx, first.ID)
	if stored.LearningTime != 30 {
		t.Errorf("first document learning time = %d, want 30", stored.LearningTime)
	}
	active, ok := lib.Detail()
	if !ok || active.DocumentID() != second.ID {
		t.Error("second document should be the open session")
	}
}

func TestLibrary_DeleteDiscardsOpenSession(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	ctx := context.Background()
	path := extracttest.WritePDF(t, dir, "gone.pdf", 2)
	doc, _ := lib.Import(ctx, path)
	if _, err := lib.OpenDetail(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if err := lib.DeleteByLocation(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, ok := lib.Detail(); ok {
		t.Error("session on a deleted document should be gone")
	}
	if _, err := lib.Get(ctx, doc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := lib.Delete(ctx, doc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

func TestLibrary_Events(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	ctx := context.Background()
	events, cancel := lib.Subscribe()
	defer cancel()

	doc, _ := lib.Import(ctx, extracttest.WritePDF(t, dir, "ev.pdf", 3))
	ctrl, err := lib.OpenDetail(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.NextPage(); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.CloseDetail(ctx); err != nil {
		t.Fatal(err)
	}

	seen := map[EventType]bool{}
	timeout := time.After(2 * time.Second)
	for !(seen[EventDocumentImported] && seen[EventSessionOpened] && seen[EventSessionChanged] && seen[EventSessionClosed]) {
		select {
		case ev := <-events:
			seen[ev.Type] = true
		case <-timeout:
			t.Fatalf("missing events, saw %v", seen)
		}
	}
}

func TestLibrary_StatsAndClose(t *testing.T) {
	lib, clock, dir := newTestLibrary(t)
	ctx := context.Background()
	doc, _ := lib.Import(ctx, extracttest.WritePDF(t, dir, "s.pdf", 3))
	ctrl, _ := lib.OpenDetail(ctx, doc.ID)
	_, _ = ctrl.ToggleBookmark(ctx)
	clock.advance(12 * time.Second)

	stats, err := lib.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 || stats.OpenDocumentID != doc.ID {
		t.Errorf("stats = %+v", stats)
	}

	events, _ := lib.Subscribe()
	if err := lib.Close(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ = lib.Stats(ctx)
	if stats.Bookmarks != 1 || stats.LearningTime != 12 || stats.OpenDocumentID != "" {
		t.Errorf("stats after close = %+v", stats)
	}
	for range events {
	}
}

func TestLibrary_DismissedSessionCancelsSyncCalls(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	syncer := &blockingSyncer{started: make(chan struct{})}
	lib := New(store, extract.NewPDFInspector(), syncer)
	ctx := context.Background()
	doc, err := lib.Import(ctx, extracttest.WritePDF(t, dir, "physics.pdf", 2))
	if err != nil {
		t.Fatal(err)
	}
	ctrl, err := lib.OpenDetail(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.ToggleBookmark(ctx)
		done <- err
	}()
	<-syncer.started

	lib.mu.Lock()
	lib.detail.Dismiss()
	lib.mu.Unlock()

	select {
	case err := <-done:
		if _, ok := syncclient.AsFailure(err); !ok {
			t.Errorf("toggle error = %v, want a sync failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dismissing the session did not cancel the create call")
	}
	if ctrl.Document().IsBookmarked(0) {
		t.Error("cancelled create must not change the mapping")
	}
}
