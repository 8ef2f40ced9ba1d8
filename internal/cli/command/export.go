package command

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/confmesh/confstore-go/internal/codec"
	"github.com/confmesh/confstore-go/internal/core/service"
)

// ExportCommand serializes the loaded snapshot to a file or stdout.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the snapshot as JSON or binary",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "export format: json or binary",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file (default: confstore-export-<id>.<ext>, \"-\" for stdout)",
			},
			&cli.BoolFlag{
				Name:  "decrypt",
				Usage: "decrypt encrypted entries into the export",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "export only this namespace",
			},
		},
		Action: runExport,
	}
}

func runExport(c *cli.Context) error {
	format, err := service.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	m, closeBackend, err := openManager(c, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	opts := codec.DefaultExportOptions()
	opts.Decrypt = c.Bool("decrypt")
	if name := c.String("namespace"); name != "" {
		id, err := m.CreateNamespace(name)
		if err != nil {
			return err
		}
		opts.NamespaceID = int(id)
	}

	data, err := m.Export(format, opts)
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if out == "" {
		out = defaultExportName(format)
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d bytes to %s\n", len(data), out)
	return nil
}

// defaultExportName stamps the file with a ULID so repeated exports
// never clobber each other and sort by creation time.
func defaultExportName(format service.Format) string {
	ext := "json"
	if format == service.FormatBinary {
		ext = "bin"
	}
	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	return fmt.Sprintf("confstore-export-%s.%s", id, ext)
}
