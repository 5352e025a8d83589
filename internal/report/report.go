// Package report renders finalized coverage summaries. Formatters are pure:
// the same summary always produces the same bytes, and no formatter mutates
// session data. New output forms are added by implementing Formatter and
// registering it, not by touching the engine.
package report

import (
	"fmt"
	"sort"

	"github.com/zjy-dev/covtrack/internal/engine"
)

// Formatter turns an aggregated coverage summary into an external
// representation.
type Formatter interface {
	// Name is the identifier used to select the formatter in configuration.
	Name() string

	// Render produces the output bytes for the summary.
	Render(sum *engine.Summary) ([]byte, error)
}

// Registry manages the available formatters.
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a registry pre-populated with the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[string]Formatter)}
	r.Register(NewTextFormatter())
	r.Register(NewJSONFormatter())
	r.Register(NewMarkdownFormatter())
	return r
}

// Register adds a formatter under its own name, replacing any previous one.
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Name()] = f
}

// Get returns the formatter registered under name.
func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (available: %v)", name, r.Names())
	}
	return f, nil
}

// Names lists the registered formatter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
