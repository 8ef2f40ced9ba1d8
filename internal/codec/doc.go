// Package codec serializes and deserializes configuration sets in the
// binary and JSON export formats.
//
// Export is two-phase: a size pass walks the store with an accumulating
// visitor, then a write pass serializes into a caller-supplied buffer.
// The write pass bounds-checks every append even though the two passes
// agree by construction.
//
// Import parses the same two formats. The binary importer validates the
// magic number and version before trusting any length field. The JSON
// importer is a small recursive-descent parser that tolerates unknown
// fields and infers a value type from the JSON shape when no explicit
// type field precedes the value.
package codec
