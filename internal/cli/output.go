// Package cli formats library data for the petitpdf command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/petitpdf/internal/detail"
	"github.com/hyperjump/petitpdf/internal/explore"
	"github.com/hyperjump/petitpdf/internal/models"
	"github.com/hyperjump/petitpdf/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const nameWidth = 40

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteDocuments writes the file list in the given format, one row per document.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, "No documents.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPAGES\tBOOKMARKS\tLEARNING\tCREATED\tID")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			utils.Truncate(d.Name, nameWidth),
			d.NumPages,
			len(d.Bookmarks),
			models.FormatLearningTime(d.LearningTime),
			d.CreatedDate(),
			d.ID,
		)
	}
	return tw.Flush()
}

// WriteDocument writes one document with its bookmarked pages.
func WriteDocument(w io.Writer, d *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, d)
	}
	fmt.Fprintf(w, "ID:        %s\n", d.ID)
	fmt.Fprintf(w, "Name:      %s\n", d.Name)
	fmt.Fprintf(w, "Location:  %s\n", d.Location)
	fmt.Fprintf(w, "Pages:     %d\n", d.NumPages)
	fmt.Fprintf(w, "Learning:  %s\n", models.FormatLearningTime(d.LearningTime))
	fmt.Fprintf(w, "Created:   %s\n", d.CreatedDate())
	pages := d.BookmarkedPages()
	if len(pages) == 0 {
		_, err := fmt.Fprintln(w, "Bookmarks: none")
		return err
	}
	fmt.Fprintln(w, "Bookmarks:")
	for _, p := range pages {
		fmt.Fprintf(w, "  page %d  %s\n", p+1, d.Bookmarks[p])
	}
	return nil
}

// WriteBookmarks writes remote bookmark records.
func WriteBookmarks(w io.Writer, records []models.BookmarkRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []models.BookmarkRecord{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No remote bookmarks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tID\tVISIBLE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", r.Page+1, r.ID, r.IsVisible, r.CreatedAt)
	}
	return tw.Flush()
}

// StatusConfig is the configuration part of a status report.
type StatusConfig struct {
	DatabasePath      string `json:"database_path,omitempty"`
	SyncBaseURL       string `json:"sync_base_url,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	MergeRemoteOnOpen bool   `json:"merge_remote_on_open"`
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Documents        int64         `json:"documents"`
	Bookmarks        int64         `json:"bookmarks"`
	LearningTime     int64         `json:"learning_time"`
	OpenDocumentID   string        `json:"open_document_id,omitempty"`
	WebsocketClients *int          `json:"websocket_clients,omitempty"`
	DiskUsageBytes   *int64        `json:"disk_usage_bytes,omitempty"`
	Config           *StatusConfig `json:"config,omitempty"`
}

// WriteStatus writes a status report.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "documents:          %d   # tracked PDF files\n", s.Documents)
	fmt.Fprintf(w, "bookmarks:          %d   # bookmarked pages across all documents\n", s.Bookmarks)
	fmt.Fprintf(w, "learning_time:      %s\n", models.FormatLearningTime(int(s.LearningTime)))
	if s.OpenDocumentID != "" {
		fmt.Fprintf(w, "open_document:      %s\n", s.OpenDocumentID)
	}
	if s.WebsocketClients != nil {
		fmt.Fprintf(w, "websocket_clients:  %d\n", *s.WebsocketClients)
	}
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database on disk\n", *s.DiskUsageBytes)
	}
	if s.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		if s.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", s.Config.DatabasePath)
		}
		if s.Config.SyncBaseURL != "" {
			fmt.Fprintf(w, "sync_base_url:      %s\n", s.Config.SyncBaseURL)
		}
		if s.Config.UserID != "" {
			fmt.Fprintf(w, "user_id:            %s\n", s.Config.UserID)
		}
		fmt.Fprintf(w, "merge_remote:       %t\n", s.Config.MergeRemoteOnOpen)
	}
	return nil
}

// SessionReport is a session response of the API.
type SessionReport struct {
	Action    detail.ToggleAction `json:"action,omitempty"`
	State     detail.State        `json:"state"`
	SyncError string              `json:"sync_error,omitempty"`
}

// WriteSession writes the open session: document, current page (1-based), and bookmarks.
func WriteSession(w io.Writer, r *SessionReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	st := r.State
	if st.Document == nil {
		_, err := fmt.Fprintln(w, "No document.")
		return err
	}
	fmt.Fprintf(w, "Document:  %s (%s)\n", st.Document.Name, st.Document.ID)
	page := fmt.Sprintf("%d / %d", st.CurrentPage+1, st.Document.NumPages)
	if st.CurrentPageBookmarked {
		page += "  (bookmarked)"
	}
	fmt.Fprintf(w, "Page:      %s\n", page)
	fmt.Fprintf(w, "Bookmarks: %s\n", pageList(st.Document.BookmarkedPages()))
	if len(st.PendingPages) > 0 {
		fmt.Fprintf(w, "Pending:   %s\n", pageList(st.PendingPages))
	}
	if st.Explorer != nil {
		fmt.Fprintf(w, "Explorer:  open (%d pages shown)\n", len(st.Explorer.Cells))
	}
	if r.Action != "" {
		fmt.Fprintf(w, "Action:    %s\n", r.Action)
	}
	if r.SyncError != "" {
		fmt.Fprintf(w, "Sync error: %s\n", r.SyncError)
	}
	return nil
}

// WriteExplorer writes the explorer grid labels.
func WriteExplorer(w io.Writer, v *explore.View, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, v)
	}
	if len(v.Cells) == 0 {
		if v.ShowBookmarksOnly {
			_, err := fmt.Fprintln(w, "No bookmarked pages.")
			return err
		}
		_, err := fmt.Fprintln(w, "No pages.")
		return err
	}
	for _, c := range v.Cells {
		if _, err := fmt.Fprintln(w, c.Label); err != nil {
			return err
		}
	}
	return nil
}

// pageList renders 0-based page indices as a 1-based comma list.
func pageList(pages []int) string {
	if len(pages) == 0 {
		return "none"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p + 1)
	}
	return strings.Join(parts, ", ")
}

// ParsePage converts a 1-based page number typed by the user into a page index.
func ParsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page %q: use a page number starting at 1", s)
	}
	return n - 1, nil
}
