// Package library manages the list of tracked PDF documents and the detail session
// opened on one of them.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/extract"
	"github.com/hyperjump/petitpdf/internal/fileid"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/internal/present"
	"github.com/hyperjump/petitpdf/internal/storage"
	"go.uber.org/zap"
)

// ErrNoDetail is returned by session operations when no document is open.
var ErrNoDetail = errors.New("no document open")

// Library imports PDFs into storage and owns at most one detail session.
type Library struct {
	storage   storage.Storage
	inspector extract.Inspector
	syncer    detail.Syncer
	logger    *zap.Logger

	mergeRemote bool
	now         func() time.Time

	mu     sync.Mutex
	detail present.Slot[*detail.Controller]

	events *broker
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger for import, session, and sync diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// WithMergeRemote makes opened sessions merge remote bookmarks into the local mapping.
func WithMergeRemote(merge bool) Option {
	return func(lib *Library) { lib.mergeRemote = merge }
}

// WithClock replaces time.Now for import dates and session timing.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) { lib.now = now }
}

// New creates a library over store. inspector reads page counts; syncer is handed to
// every detail session.
func New(store storage.Storage, inspector extract.Inspector, syncer detail.Syncer, opts ...Option) *Library {
	lib := &Library{
		storage:   store,
		inspector: inspector,
		syncer:    syncer,
		logger:    zap.NewNop(),
		now:       time.Now,
		events:    newBroker(),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Import adds the PDF at path to the library. The document ID is derived from the
// absolute path, so importing the same file again returns the stored document unchanged.
func (l *Library) Import(ctx context.Context, path string) (*models.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !extract.IsPDF(absPath) {
		return nil, fmt.Errorf("%s: %w", absPath, extract.ErrNotPDF)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := fileid.FileDocID(absPath)
	if existing, err := l.storage.GetDocument(ctx, docID); err == nil {
		l.logger.Debug("document already imported", zap.String("path", absPath), zap.String("id", docID))
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	pdfInfo, err := l.inspector.Inspect(absPath)
	if err != nil {
		return nil, fmt.Errorf("inspect PDF: %w", err)
	}
	if pdfInfo.NumPages < 1 {
		return nil, fmt.Errorf("%s: %w", absPath, extract.ErrNoPages)
	}
	doc := &models.Document{
		ID:        docID,
		Location:  absPath,
		Name:      pdfInfo.Name,
		NumPages:  pdfInfo.NumPages,
		Bookmarks: map[int]string{},
		CreatedAt: l.now(),
	}
	if err := l.storage.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	l.logger.Info("document imported",
		zap.String("id", doc.ID),
		zap.String("name", doc.Name),
		zap.Int("pages", doc.NumPages),
	)
	l.events.publish(Event{Type: EventDocumentImported, DocumentID: doc.ID, Document: doc.Clone()})
	return doc, nil
}

// ImportDirectory imports every PDF under dir. It returns the number of documents
// found and the first error encountered.
func (l *Library) ImportDirectory(ctx context.Context, dir string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extract.IsPDF(path) {
			return nil
		}
		if _, importErr := l.Import(ctx, path); importErr != nil {
			return importErr
		}
		n++
		return nil
	})
	return n, err
}

// List returns all documents, newest first.
func (l *Library) List(ctx context.Context) ([]*models.Document, error) {
	return l.storage.ListDocuments(ctx)
}

// Get returns one document.
func (l *Library) Get(ctx context.Context, id string) (*models.Document, error) {
	return l.storage.GetDocument(ctx, id)
}

// Delete removes a document. An open session on it is discarded without write-back.
func (l *Library) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	if ctrl, ok := l.detail.Get(); ok && ctrl.DocumentID() == id {
		l.detail.Dismiss()
		_, _ = ctrl.Close()
	}
	l.mu.Unlock()

	if err := l.storage.DeleteDocument(ctx, id); err != nil {
		return err
	}
	l.logger.Info("document deleted", zap.String("id", id))
	l.events.publish(Event{Type: EventDocumentDeleted, DocumentID: id})
	return nil
}

// DeleteByLocation removes the document imported from path.
func (l *Library) DeleteByLocation(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	doc, err := l.storage.GetDocumentByLocation(ctx, absPath)
	if err != nil {
		return err
	}
	return l.Delete(ctx, doc.ID)
}

// RemoteBookmarks fetches the bookmark records the remote endpoint holds for a document.
func (l *Library) RemoteBookmarks(ctx context.Context, id string) ([]models.BookmarkRecord, error) {
	return l.syncer.ListBookmarks(ctx, id)
}

// Stats summarises the library.
type Stats struct {
	Documents      int64  `json:"documents"`
	Bookmarks      int64  `json:"bookmarks"`
	LearningTime   int64  `json:"learning_time"`
	OpenDocumentID string `json:"open_document_id,omitempty"`
}

// Stats returns document, bookmark, and learning-time totals.
func (l *Library) Stats(ctx context.Context) (*Stats, error) {
	docs, err := l.storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	bookmarks, err := l.storage.CountBookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bookmarks: %w", err)
	}
	learning, err := l.storage.TotalLearningTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("total learning time: %w", err)
	}
	s := &Stats{Documents: docs, Bookmarks: bookmarks, LearningTime: learning}
	if ctrl, ok := l.Detail(); ok {
		s.OpenDocumentID = ctrl.DocumentID()
	}
	return s, nil
}
