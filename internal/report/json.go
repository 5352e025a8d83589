package report

import (
	"encoding/json"

	"github.com/zjy-dev/covtrack/internal/engine"
)

// JSONFormatter renders the summary as an indented JSON document, the
// machine-readable table-of-records form.
type JSONFormatter struct{}

// NewJSONFormatter creates the JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns "json".
func (f *JSONFormatter) Name() string { return "json" }

// Render marshals the summary.
func (f *JSONFormatter) Render(sum *engine.Summary) ([]byte, error) {
	return json.MarshalIndent(sum, "", "  ")
}
