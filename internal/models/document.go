// Package models defines core data structures for documents, bookmarks, and viewing sessions.
package models

import (
	"fmt"
	"sort"
	"time"
)

// CreatedDateLayout is the display layout for a document's import date.
const CreatedDateLayout = "2006.01.02"

// Document is a tracked PDF file with its reading metadata.
type Document struct {
	ID           string         `json:"id" db:"id"`
	Location     string         `json:"location" db:"location"`
	Name         string         `json:"name" db:"name"`
	LearningTime int            `json:"learning_time" db:"learning_time"`
	NumPages     int            `json:"num_pages" db:"num_pages"`
	Bookmarks    map[int]string `json:"bookmarks" db:"bookmarks"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// CreatedDate returns the import date formatted for display.
func (d *Document) CreatedDate() string {
	return d.CreatedAt.Format(CreatedDateLayout)
}

// ValidPage reports whether page is within [0, NumPages).
func (d *Document) ValidPage(page int) bool {
	return page >= 0 && page < d.NumPages
}

// BookmarkID returns the bookmark id stored for page, if any.
func (d *Document) BookmarkID(page int) (string, bool) {
	id, ok := d.Bookmarks[page]
	return id, ok
}

// IsBookmarked reports whether page has a bookmark.
func (d *Document) IsBookmarked(page int) bool {
	_, ok := d.Bookmarks[page]
	return ok
}

// SetBookmark maps page to id. Pages outside the document are rejected.
func (d *Document) SetBookmark(page int, id string) error {
	if !d.ValidPage(page) {
		return fmt.Errorf("page %d out of range [0, %d)", page, d.NumPages)
	}
	if d.Bookmarks == nil {
		d.Bookmarks = make(map[int]string)
	}
	d.Bookmarks[page] = id
	return nil
}

// RemoveBookmark drops the bookmark for page.
func (d *Document) RemoveBookmark(page int) {
	delete(d.Bookmarks, page)
}

// BookmarkedPages returns the bookmarked page indices in ascending order.
func (d *Document) BookmarkedPages() []int {
	pages := make([]int, 0, len(d.Bookmarks))
	for p := range d.Bookmarks {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Bookmarks = make(map[int]string, len(d.Bookmarks))
	for p, id := range d.Bookmarks {
		c.Bookmarks[p] = id
	}
	return &c
}

// FormatLearningTime renders accumulated seconds the way the file list shows them.
func FormatLearningTime(seconds int) string {
	switch {
	case seconds <= 0:
		return "not started"
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
