package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/confmesh/confstore-go/internal/codec"
	"github.com/confmesh/confstore-go/internal/core/service"
)

// ImportCommand merges a JSON or binary export into the snapshot.
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import a JSON or binary export into the snapshot",
		ArgsUsage: "FILE (\"-\" for stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "import format: json or binary",
				Value:   "json",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "erase the destination before importing",
			},
			&cli.BoolFlag{
				Name:  "skip-errors",
				Usage: "skip entries that fail instead of aborting",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "force every entry into this namespace",
			},
		},
		Action: runImport,
	}
}

func runImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("import requires exactly one input file")
	}
	format, err := service.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	data, err := readInput(c.Args().First())
	if err != nil {
		return err
	}

	m, closeBackend, err := openManager(c, true)
	if err != nil {
		return err
	}
	defer closeBackend()

	opts := codec.DefaultImportOptions()
	opts.Clear = c.Bool("clear")
	opts.SkipErrors = c.Bool("skip-errors")
	if name := c.String("namespace"); name != "" {
		id, err := m.CreateNamespace(name)
		if err != nil {
			return err
		}
		opts.NamespaceID = int(id)
	}

	if err := m.Import(format, data, opts); err != nil {
		return err
	}
	if err := m.Commit(); err != nil {
		return err
	}

	st := m.Stats()
	fmt.Fprintf(os.Stderr, "imported %d bytes, snapshot now holds %d entries\n", len(data), st.Entries)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
