package codec

import (
	"github.com/confmesh/confstore-go/internal/core/store"
	"github.com/confmesh/confstore-go/pkg/crypto/aescbc"
)

// ExportOptions control a single export call.
type ExportOptions struct {
	// NamespaceID scopes the export to one namespace, or
	// store.AllNamespaces for the whole table.
	NamespaceID int

	// Decrypt causes encrypted entries to be decrypted before
	// serialization. Entries that fail to decrypt are exported with
	// their stored ciphertext and keep the encrypted marker.
	Decrypt bool

	// Cipher is the active cipher, required when Decrypt is set.
	Cipher *aescbc.Cipher
}

// DefaultExportOptions exports every namespace without decrypting.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{NamespaceID: store.AllNamespaces}
}

// ImportOptions control a single import call.
type ImportOptions struct {
	// NamespaceID forces every imported entry into one namespace, or
	// store.AllNamespaces to keep each entry's recorded namespace.
	NamespaceID int

	// Clear erases the destination namespace (or the whole table when
	// NamespaceID is store.AllNamespaces) before importing.
	Clear bool

	// SkipErrors skips entries that fail to convert or store instead
	// of aborting the whole import.
	SkipErrors bool
}

// DefaultImportOptions imports entries into their recorded namespaces.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{NamespaceID: store.AllNamespaces}
}

// exportValue applies the decrypt-on-export policy to one entry's
// stored bytes, returning the bytes to serialize and whether the
// encrypted marker must be kept. Both export phases call this, so the
// size and write passes always agree.
func exportValue(value []byte, encrypted bool, opts ExportOptions) ([]byte, bool) {
	if !encrypted || !opts.Decrypt || opts.Cipher == nil {
		return value, encrypted
	}
	plain, err := opts.Cipher.Decrypt(value)
	if err != nil {
		// Fall back to exporting the ciphertext as stored.
		return value, true
	}
	return plain, false
}
