// Package extract opens PDF files and reports the facts the library needs about them.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned for files without a .pdf extension.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrNoPages is returned for PDFs that contain no pages.
	ErrNoPages = errors.New("PDF has no pages")
)

// Info describes a PDF on disk.
type Info struct {
	Path     string
	Name     string
	NumPages int
}

// Inspector reads PDF metadata.
type Inspector interface {
	Inspect(path string) (*Info, error)
}

// PDFInspector implements Inspector with github.com/ledongthuc/pdf.
type PDFInspector struct{}

// NewPDFInspector returns a new PDFInspector.
func NewPDFInspector() *PDFInspector {
	return &PDFInspector{}
}

// Inspect opens the file at path and returns its name and page count.
func (p *PDFInspector) Inspect(path string) (*Info, error) {
	if !IsPDF(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotPDF)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	n, err := PageCount(content)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	return &Info{Path: path, Name: filepath.Base(path), NumPages: n}, nil
}

// PageCount returns the number of pages in the PDF content.
func PageCount(content []byte) (n int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open PDF: malformed document: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("open PDF: %w", err)
	}
	return r.NumPage(), nil
}

// IsPDF reports whether path has a .pdf extension (case-insensitive).
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
