package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/pipeline"
)

// TextFormatter formats a result as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes one block per table, separated by blank lines.
func (f *TextFormatter) Format(r *pipeline.Result) error {
	_, _ = fmt.Fprintln(f.writer, strings.ToUpper(header(r)))

	for _, v := range views(r) {
		_, _ = fmt.Fprintln(f.writer)
		f.formatTable(r, v)
	}
	writeGapsText(f.writer, r)
	return nil
}

func (f *TextFormatter) formatTable(r *pipeline.Result, v tableView) {
	pkStr := ""
	if len(v.node.PKColumns) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(v.node.PKColumns, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s [%s] @ (%.0f, %.0f)%s\n",
		v.table.Name, v.node.Classification, v.node.Position.X, v.node.Position.Y, pkStr)

	for _, c := range v.table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(c))
	}

	if out := outgoing(r, v.table.Name); len(out) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, e := range out {
			_, _ = fmt.Fprintf(f.writer, "    → %s via %s (%s)\n", e.TargetTable, e.Label, e.Rule)
		}
	}
}
