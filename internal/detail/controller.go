// Package detail implements the viewing session of a single document: page navigation,
// reading-time accounting, bookmark toggling against the remote endpoint, and the
// explorer grid shown on top of it.
package detail

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/petitpdf/internal/explore"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/internal/present"
	"github.com/hyperjump/petitpdf/internal/syncclient"
	"go.uber.org/zap"
)

var (
	// ErrSessionClosed is returned by transitions after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrToggleInFlight is returned when the current page already has a create or delete pending.
	ErrToggleInFlight = errors.New("bookmark change already in flight for this page")
	// ErrNoExplorer is returned by explorer operations while the explorer is not open.
	ErrNoExplorer = errors.New("explorer not open")
	// ErrPageOutOfRange is returned when selecting a page the document does not have.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Syncer is the remote bookmark API the controller drives.
type Syncer interface {
	ListBookmarks(ctx context.Context, documentID string) ([]models.BookmarkRecord, error)
	CreateBookmark(ctx context.Context, documentID string, page int) (map[string]string, error)
	DeleteBookmark(ctx context.Context, bookmarkID string) error
}

// ToggleAction tells which remote call a toggle issued.
type ToggleAction string

const (
	ActionCreate ToggleAction = "create"
	ActionDelete ToggleAction = "delete"
)

// State is a point-in-time view of the session for presentation.
type State struct {
	Document              *models.Document        `json:"document"`
	CurrentPage           int                     `json:"current_page"`
	CurrentPageBookmarked bool                    `json:"current_page_bookmarked"`
	Session               models.SessionTiming    `json:"session"`
	Active                bool                    `json:"active"`
	Closed                bool                    `json:"closed"`
	Explorer              *explore.View           `json:"explorer,omitempty"`
	RemoteBookmarks       []models.BookmarkRecord `json:"remote_bookmarks,omitempty"`
	PendingPages          []int                   `json:"pending_pages,omitempty"`
	LastSyncError         string                  `json:"last_sync_error,omitempty"`
}

// Controller owns a transient copy of a document for one viewing session.
// All state changes happen under one lock; remote calls run outside it and their
// results are applied under it, so the bookmark mapping is never mutated concurrently.
type Controller struct {
	mu            sync.Mutex
	doc           *models.Document
	page          int
	timing        models.SessionTiming
	closed        bool
	remote        []models.BookmarkRecord
	inFlight      map[int]bool
	lastSyncError string
	explorer      present.Slot[*explore.Explorer]

	sessionCtx context.Context
	cancel     context.CancelFunc

	syncer      Syncer
	logger      *zap.Logger
	now         func() time.Time
	mergeRemote bool
	onChange    func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger that receives sync diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now for session timing.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMergeRemote makes Open add remote bookmarks for pages the local mapping lacks.
func WithMergeRemote(merge bool) Option {
	return func(c *Controller) { c.mergeRemote = merge }
}

// WithOnChange registers a callback invoked with a snapshot after every state change.
// It is called without the controller's lock held.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New starts a controller over a copy of doc. parent bounds every remote call of the session.
func New(parent context.Context, doc *models.Document, syncer Syncer, opts ...Option) *Controller {
	c := &Controller{
		doc:      doc.Clone(),
		inFlight: make(map[int]bool),
		syncer:   syncer,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sessionCtx, c.cancel = context.WithCancel(parent)
	return c
}

// DocumentID returns the id of the document being viewed.
func (c *Controller) DocumentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.ID
}

// Document returns a copy of the session's document.
func (c *Controller) Document() *models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := State{
		Document:              c.doc.Clone(),
		CurrentPage:           c.page,
		CurrentPageBookmarked: c.doc.IsBookmarked(c.page),
		Session:               c.timing,
		Active:                c.timing.Active() && !c.closed,
		Closed:                c.closed,
		RemoteBookmarks:       append([]models.BookmarkRecord(nil), c.remote...),
		LastSyncError:         c.lastSyncError,
	}
	if e, ok := c.explorer.Get(); ok {
		v := e.View()
		st.Explorer = &v
	}
	for p := range c.inFlight {
		st.PendingPages = append(st.PendingPages, p)
	}
	sort.Ints(st.PendingPages)
	return st
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

// scope derives a context for one remote call that ends when either ctx or the session does.
func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.sessionCtx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

// Open starts the session clock and fetches the document's remote bookmarks.
// A failed fetch is only recorded as a diagnostic.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	start := c.now()
	c.timing = models.SessionTiming{Start: &start}
	docID := c.doc.ID
	c.mu.Unlock()
	c.notify()

	callCtx, stop := c.scope(ctx)
	records, err := c.syncer.ListBookmarks(callCtx, docID)
	stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.recordFailureLocked("list", -1, err)
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.remote = records
	merged := 0
	if c.mergeRemote {
		merged = c.mergeLocked(records)
	}
	c.mu.Unlock()

	c.logger.Info("bookmarks fetched",
		zap.String("document_id", docID),
		zap.Int("remote", len(records)),
		zap.Int("merged", merged),
	)
	c.notify()
	return nil
}

// mergeLocked adds remote bookmarks for valid pages that have no local bookmark.
func (c *Controller) mergeLocked(records []models.BookmarkRecord) int {
	n := 0
	for _, r := range records {
		if r.PDFID != "" && r.PDFID != c.doc.ID {
			continue
		}
		if c.doc.IsBookmarked(r.Page) || r.ID == "" {
			continue
		}
		if err := c.doc.SetBookmark(r.Page, r.ID); err != nil {
			c.logger.Debug("remote bookmark skipped", zap.String("bookmark_id", r.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Close ends the session: the elapsed whole seconds are added to the document's learning
// time, pending remote calls are cancelled, the explorer is dismissed, and a copy of the
// document is returned for write-back. Closing twice returns ErrSessionClosed.
func (c *Controller) Close() (*models.Document, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrSessionClosed
	}
	end := c.now()
	c.timing.End = &end
	delta := c.timing.Delta()
	c.doc.LearningTime += delta
	c.closed = true
	c.explorer.Dismiss()
	c.cancel()
	doc := c.doc.Clone()
	c.mu.Unlock()

	c.logger.Info("session closed",
		zap.String("document_id", doc.ID),
		zap.Int("elapsed_seconds", delta),
		zap.Int("learning_time", doc.LearningTime),
	)
	c.notify()
	return doc, nil
}

// CurrentPage returns the current page index.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// NextPage moves forward one page. At the last page it does nothing.
func (c *Controller) NextPage() (int, error) {
	return c.movePage(1)
}

// PreviousPage moves back one page. At the first page it does nothing.
func (c *Controller) PreviousPage() (int, error) {
	return c.movePage(-1)
}

func (c *Controller) movePage(step int) (int, error) {
	c.mu.Lock()
	if c.closed {
		page := c.page
		c.mu.Unlock()
		return page, ErrSessionClosed
	}
	target := c.page + step
	if target < 0 || target > c.doc.NumPages-1 {
		page := c.page
		c.mu.Unlock()
		return page, nil
	}
	c.page = target
	c.mu.Unlock()
	c.notify()
	return target, nil
}

// SetPage jumps to page, clamped to [0, NumPages-1].
func (c *Controller) SetPage(page int) (int, error) {
	c.mu.Lock()
	if c.closed {
		cur := c.page
		c.mu.Unlock()
		return cur, ErrSessionClosed
	}
	c.page = clampPage(page, c.doc.NumPages)
	cur := c.page
	c.mu.Unlock()
	c.notify()
	return cur, nil
}

func clampPage(page, numPages int) int {
	if page > numPages-1 {
		page = numPages - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// ToggleBookmark deletes the current page's bookmark if it has one, otherwise creates one.
// The mapping changes only after the remote call succeeds, and the change applies to the
// page that was current when the toggle was issued. A failure leaves the mapping as it was
// and is returned (and recorded as LastSyncError) for diagnostics.
func (c *Controller) ToggleBookmark(ctx context.Context) (ToggleAction, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrSessionClosed
	}
	page := c.page
	if !c.doc.ValidPage(page) {
		c.mu.Unlock()
		return "", fmt.Errorf("page %d of %d: %w", page, c.doc.NumPages, ErrPageOutOfRange)
	}
	if c.inFlight[page] {
		c.mu.Unlock()
		return "", ErrToggleInFlight
	}
	docID := c.doc.ID
	bookmarkID, bookmarked := c.doc.BookmarkID(page)
	c.inFlight[page] = true
	c.mu.Unlock()
	c.notify()

	action := ActionCreate
	if bookmarked {
		action = ActionDelete
	}

	callCtx, stop := c.scope(ctx)
	var (
		newID string
		err   error
	)
	if bookmarked {
		err = c.syncer.DeleteBookmark(callCtx, bookmarkID)
	} else {
		var resp map[string]string
		resp, err = c.syncer.CreateBookmark(callCtx, docID, page)
		if err == nil {
			newID = resp[syncclient.BookmarkIDKey]
			if newID == "" {
				err = &syncclient.Failure{Message: fmt.Sprintf("create bookmark: response missing %s", syncclient.BookmarkIDKey)}
			}
		}
	}
	stop()

	c.mu.Lock()
	delete(c.inFlight, page)
	if c.closed {
		c.mu.Unlock()
		return action, ErrSessionClosed
	}
	if err != nil {
		c.recordFailureLocked(string(action), page, err)
		c.mu.Unlock()
		c.notify()
		return action, err
	}
	if bookmarked {
		c.doc.RemoveBookmark(page)
	} else if setErr := c.doc.SetBookmark(page, newID); setErr != nil {
		c.mu.Unlock()
		c.notify()
		return action, setErr
	}
	c.lastSyncError = ""
	c.mu.Unlock()

	c.logger.Debug("bookmark toggled",
		zap.String("document_id", docID),
		zap.Int("page", page),
		zap.String("action", string(action)),
	)
	c.notify()
	return action, nil
}

func (c *Controller) recordFailureLocked(op string, page int, err error) {
	c.lastSyncError = err.Error()
	fields := []zap.Field{zap.String("op", op), zap.String("document_id", c.doc.ID), zap.Error(err)}
	if page >= 0 {
		fields = append(fields, zap.Int("page", page))
	}
	c.logger.Warn("bookmark sync failed", fields...)
}

// OpenExplorer presents the explorer over a snapshot of the current document.
func (c *Controller) OpenExplorer() (explore.View, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return explore.View{}, ErrSessionClosed
	}
	e := explore.New(c.doc)
	c.explorer.Present(c.sessionCtx, e)
	v := e.View()
	c.mu.Unlock()
	c.notify()
	return v, nil
}

// CloseExplorer dismisses the explorer, discarding its snapshot.
func (c *Controller) CloseExplorer() {
	c.mu.Lock()
	_, ok := c.explorer.Dismiss()
	c.mu.Unlock()
	if ok {
		c.notify()
	}
}

// ExplorerView returns the explorer grid.
func (c *Controller) ExplorerView() (explore.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.explorer.Get()
	if !ok {
		return explore.View{}, ErrNoExplorer
	}
	return e.View(), nil
}

// SetExplorerBookmarksOnly switches the explorer between all pages and bookmarked pages.
func (c *Controller) SetExplorerBookmarksOnly(bookmarksOnly bool) (explore.View, error) {
	c.mu.Lock()
	e, ok := c.explorer.Get()
	if !ok {
		c.mu.Unlock()
		return explore.View{}, ErrNoExplorer
	}
	e.SetBookmarksOnly(bookmarksOnly)
	v := e.View()
	c.mu.Unlock()
	c.notify()
	return v, nil
}

// ToggleExplorerBookmarksOnly flips the explorer filter.
func (c *Controller) ToggleExplorerBookmarksOnly() (explore.View, error) {
	c.mu.Lock()
	e, ok := c.explorer.Get()
	if !ok {
		c.mu.Unlock()
		return explore.View{}, ErrNoExplorer
	}
	e.ToggleBookmarksOnly()
	v := e.View()
	c.mu.Unlock()
	c.notify()
	return v, nil
}

// SelectFromExplorer changes to page and closes the explorer.
func (c *Controller) SelectFromExplorer(page int) (int, error) {
	c.mu.Lock()
	if c.closed {
		cur := c.page
		c.mu.Unlock()
		return cur, ErrSessionClosed
	}
	e, ok := c.explorer.Get()
	if !ok {
		cur := c.page
		c.mu.Unlock()
		return cur, ErrNoExplorer
	}
	if !e.Valid(page) {
		cur := c.page
		c.mu.Unlock()
		return cur, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	c.page = clampPage(page, c.doc.NumPages)
	c.explorer.Dismiss()
	cur := c.page
	c.mu.Unlock()
	c.notify()
	return cur, nil
}
