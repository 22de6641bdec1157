// Package uuid generates worker identities recorded in claimed_by.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID v7 strings, optionally prefixed with a host label.
type Generator struct {
	prefix string
}

// New creates a Generator. A non-empty prefix (usually the hostname) is
// prepended so operators can tell which machine holds a claim.
func New(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// NewID returns a UUID7 string.
func (g Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	if g.prefix == "" {
		return id.String(), nil
	}
	return g.prefix + "/" + id.String(), nil
}
