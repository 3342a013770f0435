package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/petitpdf/internal/config"
	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/explore"
	"github.com/hyperjump/petitpdf/internal/extract"
	"github.com/hyperjump/petitpdf/internal/library"
	"github.com/hyperjump/petitpdf/internal/storage"
	"github.com/hyperjump/petitpdf/internal/syncclient"
	"go.uber.org/zap"
)

// sessionResponse carries the session state. SyncError is set when a remote bookmark
// call failed; the state is then unchanged.
type sessionResponse struct {
	Action    detail.ToggleAction `json:"action,omitempty"`
	State     detail.State        `json:"state"`
	SyncError string              `json:"sync_error,omitempty"`
}

type importRequest struct {
	Path string `json:"path"`
}

type pageRequest struct {
	Action string `json:"action"`
	Page   int    `json:"page"`
}

type selectRequest struct {
	Page int `json:"page"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.library.Stats(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         stats.Documents,
		"bookmarks":         stats.Bookmarks,
		"learning_time":     stats.LearningTime,
		"websocket_clients": s.hub.Count(),
	}
	if stats.OpenDocumentID != "" {
		resp["open_document_id"] = stats.OpenDocumentID
	}
	resp["config"] = map[string]interface{}{
		"database_path":        s.config.Storage.DatabasePath,
		"sync_base_url":        s.config.Sync.BaseURL,
		"user_id":              s.config.Sync.UserID,
		"merge_remote_on_open": s.config.Sync.MergeRemoteOnOpen,
	}
	if size, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = size
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.library.List(r.Context())
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleImportDocument(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("import document request", zap.String("path", req.Path))
	doc, err := s.library.Import(r.Context(), req.Path)
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.library.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.library.Delete(r.Context(), id); err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleRemoteBookmarks(w http.ResponseWriter, r *http.Request) {
	records, err := s.library.RemoteBookmarks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": records})
}

func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.library.OpenDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	st := ctrl.Snapshot()
	s.respondJSON(w, http.StatusOK, sessionResponse{State: st, SyncError: st.LastSyncError})
}

func (s *Server) session(w http.ResponseWriter) (*detail.Controller, bool) {
	ctrl, ok := s.library.Detail()
	if !ok {
		s.respondLibraryError(w, library.ErrNoDetail)
	}
	return ctrl, ok
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{State: ctrl.Snapshot()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	doc, err := s.library.CloseDetail(r.Context())
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var err error
	switch req.Action {
	case "next":
		_, err = ctrl.NextPage()
	case "previous":
		_, err = ctrl.PreviousPage()
	case "set":
		_, err = ctrl.SetPage(req.Page)
	default:
		s.respondError(w, http.StatusBadRequest, "action must be next, previous, or set")
		return
	}
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{State: ctrl.Snapshot()})
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	action, err := ctrl.ToggleBookmark(r.Context())
	resp := sessionResponse{Action: action}
	if failure, isFailure := syncclient.AsFailure(err); isFailure {
		resp.SyncError = failure.Message
	} else if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	resp.State = ctrl.Snapshot()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExplorer(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	var (
		view explore.View
		err  error
	)
	if raw := r.URL.Query().Get("bookmarks_only"); raw != "" {
		only, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			s.respondError(w, http.StatusBadRequest, "bookmarks_only must be a boolean")
			return
		}
		view, err = ctrl.SetExplorerBookmarksOnly(only)
	} else {
		view, err = ctrl.ExplorerView()
	}
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleOpenExplorer(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	view, err := ctrl.OpenExplorer()
	if err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseExplorer(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	ctrl.CloseExplorer()
	s.respondJSON(w, http.StatusOK, sessionResponse{State: ctrl.Snapshot()})
}

func (s *Server) handleSelectFromExplorer(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := ctrl.SelectFromExplorer(req.Page); err != nil {
		s.respondLibraryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{State: ctrl.Snapshot()})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Scan *bool  `json:"scan,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	scan := true
	if req.Scan != nil {
		scan = *req.Scan
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("scan_existing", scan))
	if err := s.watch.AddDirectory(abs, scan); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.watchConfigMu.Lock()
	defer s.watchConfigMu.Unlock()
	dirs := s.watch.Directories()
	s.config.Watch.Directories = dirs
	if err := config.SaveWatchDirectories(s.configPath, dirs); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// respondLibraryError maps domain errors to HTTP statuses.
func (s *Server) respondLibraryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrNoDetail):
		status = http.StatusNotFound
	case errors.Is(err, extract.ErrNotPDF), errors.Is(err, extract.ErrNoPages), errors.Is(err, detail.ErrPageOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, detail.ErrToggleInFlight),
		errors.Is(err, detail.ErrSessionClosed),
		errors.Is(err, detail.ErrNoExplorer):
		status = http.StatusConflict
	}
	if _, ok := syncclient.AsFailure(err); ok {
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
