// Package store implements the authoritative key-value table.
//
// The table is a fixed-capacity array of slots allocated once at
// construction. Freed slots are reused in index order, so iteration
// visits entries in slot order: insertion order with gaps filled by
// later inserts.
//
// The table performs no locking; callers embedding the engine in a
// multi-threaded host must serialize all calls externally.
package store
