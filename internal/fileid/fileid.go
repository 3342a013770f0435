// Package fileid provides a deterministic document ID from a PDF's location.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes document IDs to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("petitpdf:document"))

// FileDocID returns a stable UUID for the given absolute path.
// Same path always yields the same ID, so re-importing a file does not duplicate it
// and the remote bookmark set stays attached to the same pdfId.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	return uuid.NewSHA1(namespace, []byte(normalized)).String()
}
