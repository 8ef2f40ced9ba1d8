// Package main provides the entry point for confstore-cli.
//
// confstore-cli inspects, exports, and imports configuration
// snapshots, and generates encryption keys.
package main

import (
	"fmt"
	"os"

	"github.com/confmesh/confstore-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
