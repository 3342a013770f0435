package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/petitpdf/internal/config"
	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/explore"
	"github.com/hyperjump/petitpdf/internal/extract"
	"github.com/hyperjump/petitpdf/internal/extract/extracttest"
	"github.com/hyperjump/petitpdf/internal/library"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/internal/storage"
	"github.com/hyperjump/petitpdf/internal/syncclient"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

// fakeRemote stands in for the bookmark cloud functions.
type fakeRemote struct {
	mu         sync.Mutex
	failCreate bool
	next       int
	records    []models.BookmarkRecord
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(f.records)
	})
	mux.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failCreate {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		f.next++
		_ = json.NewEncoder(w).Encode(map[string]string{"bookmarkId": "remote-" + string(rune('0'+f.next))})
	})
	mux.HandleFunc("/delete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	remote  *fakeRemote
	dir     string
	cfg     *config.Config
}

func newTestEnv(t *testing.T, watch WatchService, configPath string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	remote := &fakeRemote{}
	remoteSrv := httptest.NewServer(remote.handler())
	t.Cleanup(remoteSrv.Close)

	cfg := &config.Config{
		Storage: config.StorageConfig{DatabasePath: filepath.Join(dir, "library.db")},
		Sync: config.SyncConfig{
			BaseURL: remoteSrv.URL, ListPath: "list", CreatePath: "create", DeletePath: "delete",
			UserID: "tester",
		},
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	client, err := syncclient.NewClient(cfg.Sync)
	if err != nil {
		t.Fatal(err)
	}
	lib := library.New(store, extract.NewPDFInspector(), client)
	srv := NewServer(lib, cfg, zap.NewNop(), watch, configPath)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return &testEnv{srv: srv, handler: srv.Handler(), remote: remote, dir: dir, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func (e *testEnv) importPDF(t *testing.T, name string, pages int) *models.Document {
	t.Helper()
	path := extracttest.WritePDF(t, e.dir, name, pages)
	w := e.do(t, http.MethodPost, "/api/v1/documents", map[string]string{"path": path})
	if w.Code != http.StatusCreated {
		t.Fatalf("import status %d: %s", w.Code, w.Body.String())
	}
	var doc models.Document
	decode(t, w, &doc)
	return &doc
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil, "")
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestDocumentsLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, "")
	doc := env.importPDF(t, "physics.pdf", 3)
	if doc.NumPages != 3 || doc.Name != "physics.pdf" {
		t.Errorf("imported: %+v", doc)
	}

	w := env.do(t, http.MethodGet, "/api/v1/documents", nil)
	var list struct {
		Documents []*models.Document `json:"documents"`
	}
	decode(t, w, &list)
	if len(list.Documents) != 1 || list.Documents[0].ID != doc.ID {
		t.Errorf("list: %+v", list)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, nil); w.Code != http.StatusOK {
		t.Errorf("get: %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil); w.Code != http.StatusOK {
		t.Errorf("delete: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", w.Code)
	}
}

func TestImportErrors(t *testing.T) {
	env := newTestEnv(t, nil, "")
	txt := filepath.Join(env.dir, "a.txt")
	if err := os.WriteFile(txt, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	blank := extracttest.WritePDF(t, env.dir, "blank.pdf", 0)
	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"missing path", map[string]string{}, http.StatusBadRequest},
		{"not a pdf", map[string]string{"path": txt}, http.StatusBadRequest},
		{"pdf without pages", map[string]string{"path": blank}, http.StatusBadRequest},
		{"missing file", map[string]string{"path": filepath.Join(env.dir, "nope.pdf")}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/documents", tt.body)
			if w.Code != tt.want {
				t.Errorf("status %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, nil, "")
	doc := env.importPDF(t, "chem.pdf", 4)

	if w := env.do(t, http.MethodGet, "/api/v1/session", nil); w.Code != http.StatusNotFound {
		t.Errorf("session before open: %d", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/open", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/session/page", map[string]interface{}{"action": "next"})
	var resp sessionResponse
	decode(t, w, &resp)
	if resp.State.CurrentPage != 1 {
		t.Errorf("page after next = %d", resp.State.CurrentPage)
	}
	w = env.do(t, http.MethodPost, "/api/v1/session/page", map[string]interface{}{"action": "set", "page": 99})
	resp = sessionResponse{}
	decode(t, w, &resp)
	if resp.State.CurrentPage != 3 {
		t.Errorf("page after set 99 = %d, want clamp to 3", resp.State.CurrentPage)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/session/page", map[string]interface{}{"action": "jump"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/session/bookmark", nil)
	resp = sessionResponse{}
	decode(t, w, &resp)
	if resp.Action != detail.ActionCreate || resp.SyncError != "" || !resp.State.CurrentPageBookmarked {
		t.Errorf("toggle: %+v", resp)
	}

	w = env.do(t, http.MethodPost, "/api/v1/session/explorer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open explorer: %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/v1/session/explorer?bookmarks_only=true", nil)
	var view explore.View
	decode(t, w, &view)
	if len(view.Cells) != 1 || view.Cells[0].Page != 3 || view.Cells[0].Label != "4 (bookmarked)" {
		t.Errorf("bookmarks-only view: %+v", view)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/session/explorer?bookmarks_only=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad bookmarks_only: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/v1/session/explorer/select", map[string]int{"page": 0})
	resp = sessionResponse{}
	decode(t, w, &resp)
	if resp.State.CurrentPage != 0 || resp.State.Explorer != nil {
		t.Errorf("select: %+v", resp.State)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/session/explorer", nil); w.Code != http.StatusConflict {
		t.Errorf("explorer after select: %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("close: %d %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	var stored models.Document
	decode(t, w, &stored)
	if !stored.IsBookmarked(3) {
		t.Errorf("bookmark not written back: %+v", stored.Bookmarks)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/session", nil); w.Code != http.StatusNotFound {
		t.Errorf("second close: %d", w.Code)
	}
}

func TestToggleBookmarkSyncFailure(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.remote.failCreate = true
	doc := env.importPDF(t, "fail.pdf", 2)
	if w := env.do(t, http.MethodPost, "/api/v1/documents/"+doc.ID+"/open", nil); w.Code != http.StatusOK {
		t.Fatalf("open: %d", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/session/bookmark", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status %d", w.Code)
	}
	var resp sessionResponse
	decode(t, w, &resp)
	if resp.SyncError == "" {
		t.Error("expected sync_error")
	}
	if resp.State.CurrentPageBookmarked || len(resp.State.Document.Bookmarks) != 0 {
		t.Errorf("state changed despite failure: %+v", resp.State)
	}
}

func TestRemoteBookmarks(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.remote.records = []models.BookmarkRecord{{ID: "r1", Page: 2, PDFID: "d", UserID: "tester", IsVisible: true}}
	w := env.do(t, http.MethodGet, "/api/v1/documents/d/bookmarks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var out struct {
		Bookmarks []models.BookmarkRecord `json:"bookmarks"`
	}
	decode(t, w, &out)
	if len(out.Bookmarks) != 1 || out.Bookmarks[0].ID != "r1" {
		t.Errorf("bookmarks: %+v", out.Bookmarks)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.importPDF(t, "s.pdf", 1)
	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	var out map[string]interface{}
	decode(t, w, &out)
	if out["documents"].(float64) != 1 {
		t.Errorf("documents = %v", out["documents"])
	}
	cfg := out["config"].(map[string]interface{})
	if cfg["user_id"] != "tester" {
		t.Errorf("config = %v", cfg)
	}
	if _, ok := out["disk_usage_bytes"]; !ok {
		t.Error("disk_usage_bytes missing")
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	env := newTestEnv(t, &mockWatchService{dirs: []string{"/tmp/inbox"}}, "")
	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	decode(t, w, &out)
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/inbox" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	env := newTestEnv(t, nil, "")
	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAddRemovePersists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	original := "# local settings\nsync:\n  user_id: \"file-user\"\n"
	if err := os.WriteFile(configPath, []byte(original), 0600); err != nil {
		t.Fatal(err)
	}
	mock := &mockWatchService{}
	env := newTestEnv(t, mock, configPath)
	inbox := filepath.Join(env.dir, "inbox")
	if err := os.MkdirAll(inbox, 0755); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]interface{}{"path": inbox, "scan": false})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	saved, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(saved), inbox) {
		t.Errorf("config not persisted:\n%s", saved)
	}
	for _, want := range []string{"# local settings", "file-user"} {
		if !strings.Contains(string(saved), want) {
			t.Errorf("persisting watch directories dropped %q:\n%s", want, saved)
		}
	}
	for _, unwanted := range []string{"tester", env.cfg.Sync.BaseURL, "library.db"} {
		if strings.Contains(string(saved), unwanted) {
			t.Errorf("runtime setting %q leaked into the config file:\n%s", unwanted, saved)
		}
	}

	if w := env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": filepath.Join(env.dir, "missing")}); w.Code != http.StatusNotFound {
		t.Errorf("add missing dir: %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/watch/directories?path="+inbox, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: %d", w.Code)
	}
	if len(mock.dirs) != 0 {
		t.Errorf("dirs after remove: %v", mock.dirs)
	}
}
