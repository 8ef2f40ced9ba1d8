// Package main provides the entry point for confstore-cli.
//
// The CLI tool provides command-line access to confstore snapshots for:
//
//   - Exporting snapshots as JSON or binary
//   - Importing exports, with clear and skip-errors policies
//   - Inspecting entry metadata (type, size, encryption)
//   - Generating and deriving encryption keys
//
// Usage:
//
//	confstore-cli [command] [flags]
//	confstore-cli --snapshot store.bin inspect --output json
//	confstore-cli --snapshot store.bin export --format json --out config.json
package main
