package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/petitpdf/internal/extract/extracttest"
)

func TestPageCount(t *testing.T) {
	for _, pages := range []int{1, 4, 12} {
		n, err := PageCount(extracttest.MinimalPDF(pages))
		if err != nil {
			t.Fatalf("PageCount(%d pages): %v", pages, err)
		}
		if n != pages {
			t.Errorf("PageCount = %d, want %d", n, pages)
		}
	}
}

func TestPageCount_invalid(t *testing.T) {
	if _, err := PageCount([]byte("not a pdf at all")); err == nil {
		t.Error("expected error for non-PDF content")
	}
}

func TestPDFInspector_Inspect(t *testing.T) {
	dir := t.TempDir()
	path := extracttest.WritePDF(t, dir, "수능특강.pdf", 10)

	info, err := NewPDFInspector().Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Name != "수능특강.pdf" || info.NumPages != 10 || info.Path != path {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestPDFInspector_rejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewPDFInspector().Inspect(path)
	if !errors.Is(err, ErrNotPDF) {
		t.Errorf("Inspect(.txt) error = %v, want ErrNotPDF", err)
	}
}

func TestPDFInspector_rejectsEmptyDocument(t *testing.T) {
	path := extracttest.WritePDF(t, t.TempDir(), "blank.pdf", 0)
	_, err := NewPDFInspector().Inspect(path)
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("Inspect(0 pages) error = %v, want ErrNoPages", err)
	}
}

func TestIsPDF(t *testing.T) {
	tests := map[string]bool{
		"a.pdf":     true,
		"B.PDF":     true,
		"c.pdf.txt": false,
		"d":         false,
	}
	for path, want := range tests {
		if got := IsPDF(path); got != want {
			t.Errorf("IsPDF(%q) = %v, want %v", path, got, want)
		}
	}
}
