package report

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownFormat is returned by Get for a name with no formatter.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter renders a Report.
type Formatter interface {
	Format(w *bytes.Buffer, r *Report) error
}

// formatters holds one stateless instance per output format.
var formatters = map[string]Formatter{
	"json":   &JSONFormatter{},
	"pretty": &PrettyFormatter{},
	"text":   &TextFormatter{},
	"yaml":   &YAMLFormatter{},
}

// Get returns the formatter for name.
func Get(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Available returns the sorted format names.
func Available() []string {
	return slices.Sorted(maps.Keys(formatters))
}
