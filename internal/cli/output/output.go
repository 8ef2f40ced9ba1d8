// Package output provides output formatting for confstore-cli.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Formatter renders structured data for the terminal.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// New returns the formatter for a --output flag value.
func New(format string) (Formatter, error) {
	switch format {
	case "json":
		return &JSONFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "table":
		return &TableFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// Table is tabular data for the table formatter.
type Table struct {
	Headers []string
	Rows    [][]string
}

// TableFormatter renders a Table with aligned columns. Non-Table data
// falls back to YAML.
type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	t, ok := data.(*Table)
	if !ok {
		return (&YAMLFormatter{}).Format(w, data)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
