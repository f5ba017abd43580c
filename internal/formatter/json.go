package formatter

import (
	"encoding/json"
	"io"

	"github.com/tordrt/schemagraph/internal/graph"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// JSONFormatter writes the graph contract as indented JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(r *pipeline.Result) error {
	g := graph.Empty()
	if r != nil && r.Graph != nil {
		g = r.Graph
	}
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}
