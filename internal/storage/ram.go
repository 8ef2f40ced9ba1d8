package storage

import (
	"bytes"

	"github.com/confmesh/confstore-go/internal/core/domain"
)

// RAM is an in-memory backend. Snapshots do not survive the process;
// it exists for tests and for callers that only want Commit/Load
// symmetry without durability.
type RAM struct {
	data []byte
}

// NewRAM creates an empty in-memory backend.
func NewRAM() *RAM {
	return &RAM{}
}

// Commit replaces the held snapshot.
func (r *RAM) Commit(data []byte) error {
	r.data = bytes.Clone(data)
	return nil
}

// Load returns the held snapshot.
func (r *RAM) Load() ([]byte, error) {
	if r.data == nil {
		return nil, domain.ErrNotFound.WithDetails("no snapshot committed")
	}
	return bytes.Clone(r.data), nil
}
