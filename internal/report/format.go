package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"
)

// Formatter renders a schema report to a writer in one output format
type Formatter interface {
	Write(rep *SchemaReport, w io.Writer) error
	Format() string
}

// ForFormat returns the formatter for a format identifier
func ForFormat(name string) (Formatter, error) {
	switch name {
	case "json":
		return &JSONFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "text", "":
		return &TextFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", name)
	}
}

// JSONFormatter renders the report as indented JSON
type JSONFormatter struct{}

// Format returns the format identifier
func (f *JSONFormatter) Format() string {
	return "json"
}

// Write encodes the report to JSON
func (f *JSONFormatter) Write(rep *SchemaReport, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// YAMLFormatter renders the report as YAML
type YAMLFormatter struct{}

// Format returns the format identifier
func (f *YAMLFormatter) Format() string {
	return "yaml"
}

// Write encodes the report to YAML
func (f *YAMLFormatter) Write(rep *SchemaReport, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// TextFormatter renders a human-readable dump for terminal inspection
type TextFormatter struct{}

var textConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Format returns the format identifier
func (f *TextFormatter) Format() string {
	return "text"
}

// Write dumps the report with generated statements listed per type
func (f *TextFormatter) Write(rep *SchemaReport, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Schema report (%s dialect, %d types)\n\n",
		rep.Dialect, len(rep.Types)); err != nil {
		return err
	}

	for _, tr := range rep.Types {
		if _, err := fmt.Fprintf(w, "==== %s -> %s ====\n", tr.Name, tr.Table); err != nil {
			return err
		}
		textConfig.Fdump(w, tr.Columns)
		if _, err := fmt.Fprintf(w, "%s\n", tr.CreateTable); err != nil {
			return err
		}
		for _, idx := range tr.Indexes {
			if _, err := fmt.Fprintf(w, "%s\n", idx); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n%s\n%s\n\n",
			tr.Insert, tr.Update, tr.Delete, tr.SelectByKey); err != nil {
			return err
		}
	}

	return nil
}
