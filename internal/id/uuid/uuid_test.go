// Package uuid includes tests for the worker identity generator.
package uuid

import (
	"strings"
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewID ensures generated IDs are unique and valid UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New("")
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	if _, err := goUUID.Parse(id1); err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if _, err := goUUID.Parse(id2); err != nil {
		t.Fatalf("id2 not valid UUID: %v", err)
	}
}

// TestGeneratorPrefix checks the host label is kept in front of the UUID.
func TestGeneratorPrefix(t *testing.T) {
	t.Parallel()

	id, err := New("crawler-1").NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	rest, ok := strings.CutPrefix(id, "crawler-1/")
	if !ok {
		t.Fatalf("expected prefix, got %s", id)
	}
	if _, err := goUUID.Parse(rest); err != nil {
		t.Fatalf("suffix not valid UUID: %v", err)
	}
}
