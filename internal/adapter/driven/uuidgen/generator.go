// Package uuidgen implements the IDGenerator port with random UUIDs.
package uuidgen

import (
	"github.com/google/uuid"

	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IDGenerator = (*Generator)(nil)

// Generator produces UUID-v4 identifiers.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a fresh random UUID string.
func (*Generator) NewID() string {
	return uuid.NewString()
}
