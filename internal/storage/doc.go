// Package storage provides persistence backends for committed
// configuration snapshots.
//
// Every backend stores exactly one snapshot blob: Commit replaces it,
// Load returns it. RAM keeps the blob in memory, File writes it
// atomically to one file, Badger keeps it in an embedded database, and
// Mock injects failures for tests.
package storage
