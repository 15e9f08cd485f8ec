package presentation

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format string
}

// NewFormatter creates a formatter writing format ("json" or "yaml") to writer.
func NewFormatter(writer io.Writer, format string) (*Formatter, error) {
	switch format {
	case FormatJSON, FormatYAML:
	case "":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
	return &Formatter{
		writer: writer,
		format: format,
	}, nil
}

// FormatSlots writes a list of slots
func (f *Formatter) FormatSlots(slots []SlotDTO) error {
	return f.encode(slots)
}

// FormatResult writes the result of a content command
func (f *Formatter) FormatResult(result any) error {
	return f.encode(result)
}

func (f *Formatter) encode(v any) error {
	if f.format == FormatYAML {
		encoder := yaml.NewEncoder(f.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
