// Package export renders conversation history into shareable formats.
package export

import (
	"sort"

	"github.com/heartline/heartline/internal/memory"
)

// Session is one conversation with its turns in order.
type Session struct {
	Summary memory.SessionSummary
	Turns   []memory.Turn
}

// ExportData is passed to every Exporter.
type ExportData struct {
	Profile  memory.Profile
	Sessions []Session
}

// Exporter renders ExportData to a string in a specific format.
type Exporter interface {
	Export(data ExportData) (string, error)
}

// registry maps format names to Exporter implementations.
var registry = map[string]Exporter{
	"markdown": &MarkdownExporter{},
	"json":     &JSONExporter{},
}

// Get returns the Exporter registered under name, and whether it was found.
func Get(name string) (Exporter, bool) {
	e, ok := registry[name]
	return e, ok
}

// ValidFormats returns the supported export format names, sorted.
func ValidFormats() []string {
	formats := make([]string, 0, len(registry))
	for k := range registry {
		formats = append(formats, k)
	}
	sort.Strings(formats)
	return formats
}
