package fileid

import (
	"testing"

	"github.com/google/uuid"
)

func TestFileDocID(t *testing.T) {
	id1 := FileDocID("/docs/suneung.pdf")
	id2 := FileDocID("/docs/suneung.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	parsed, err := uuid.Parse(id1)
	if err != nil {
		t.Fatalf("ID should be a UUID: %v", err)
	}
	if parsed.Version() != 5 {
		t.Errorf("ID version = %d, want 5", parsed.Version())
	}
}

func TestFileDocID_differentPaths(t *testing.T) {
	if FileDocID("/docs/a.pdf") == FileDocID("/docs/b.pdf") {
		t.Error("different paths should give different IDs")
	}
}

func TestFileDocID_normalized(t *testing.T) {
	id1 := FileDocID("/docs/a.pdf")
	id2 := FileDocID("/docs/./a.pdf")
	id3 := FileDocID("/docs/sub/../a.pdf")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should match: %q %q %q", id1, id2, id3)
	}
}
