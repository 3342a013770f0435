// Package explore provides the read-only page grid shown over a document.
package explore

import (
	"strconv"

	"github.com/hyperjump/petitpdf/internal/models"
)

// Pages returns the page indices to show for doc: every page in ascending order,
// or only the bookmarked pages (sorted) when bookmarksOnly is set.
func Pages(doc *models.Document, bookmarksOnly bool) []int {
	if bookmarksOnly {
		return doc.BookmarkedPages()
	}
	pages := make([]int, doc.NumPages)
	for i := range pages {
		pages[i] = i
	}
	return pages
}

// Explorer is a snapshot of a document taken when the grid opens.
// Changes to the live document after that are not reflected.
type Explorer struct {
	doc               *models.Document
	showBookmarksOnly bool
}

// New snapshots doc into a new Explorer showing all pages.
func New(doc *models.Document) *Explorer {
	return &Explorer{doc: doc.Clone()}
}

// Document returns the snapshot.
func (e *Explorer) Document() *models.Document {
	return e.doc
}

// ShowBookmarksOnly reports the current filter.
func (e *Explorer) ShowBookmarksOnly() bool {
	return e.showBookmarksOnly
}

// SetBookmarksOnly sets the filter.
func (e *Explorer) SetBookmarksOnly(v bool) {
	e.showBookmarksOnly = v
}

// ToggleBookmarksOnly flips between all pages and bookmarked pages.
func (e *Explorer) ToggleBookmarksOnly() {
	e.showBookmarksOnly = !e.showBookmarksOnly
}

// Pages returns the indices for the current filter.
func (e *Explorer) Pages() []int {
	return Pages(e.doc, e.showBookmarksOnly)
}

// Valid reports whether page can be selected from the grid.
func (e *Explorer) Valid(page int) bool {
	return e.doc.ValidPage(page)
}

// Label returns the grid caption for page: its 1-based number, marked when bookmarked.
func (e *Explorer) Label(page int) string {
	label := strconv.Itoa(page + 1)
	if e.doc.IsBookmarked(page) {
		label += " (bookmarked)"
	}
	return label
}

// Cell is one grid entry.
type Cell struct {
	Page       int    `json:"page"`
	Label      string `json:"label"`
	Bookmarked bool   `json:"bookmarked"`
}

// View is the grid as presented.
type View struct {
	DocumentID        string `json:"document_id"`
	ShowBookmarksOnly bool   `json:"show_bookmarks_only"`
	Cells             []Cell `json:"cells"`
}

// View renders the grid for the current filter.
func (e *Explorer) View() View {
	pages := e.Pages()
	cells := make([]Cell, len(pages))
	for i, p := range pages {
		cells[i] = Cell{Page: p, Label: e.Label(p), Bookmarked: e.doc.IsBookmarked(p)}
	}
	return View{DocumentID: e.doc.ID, ShowBookmarksOnly: e.showBookmarksOnly, Cells: cells}
}
