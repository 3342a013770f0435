// Package storage defines the persistence interface for the document library.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/petitpdf/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage defines document persistence operations.
type Storage interface {
	// SaveDocument inserts doc, or replaces it when a document with the same ID exists.
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByLocation(ctx context.Context, location string) (*models.Document, error)
	// UpdateDocument writes back learning time and bookmarks after a viewing session.
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	// ListDocuments returns documents newest first.
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountBookmarks(ctx context.Context) (int64, error)
	TotalLearningTime(ctx context.Context) (int64, error)

	Close() error
}
