package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/pipeline"
)

// MarkdownFormatter formats a result as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the whole result as one markdown document.
func (f *MarkdownFormatter) Format(r *pipeline.Result) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema Graph")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "%s.\n\n", header(r))

	for _, v := range views(r) {
		f.formatTable(r, v, false)
	}
	writeGapsMarkdown(f.writer, r)
	return nil
}

// FormatTable writes a single table section, including the tables that
// reference it. It reports false when the table is not in the result.
func (f *MarkdownFormatter) FormatTable(r *pipeline.Result, name string) bool {
	for _, v := range views(r) {
		if v.table.Name == name {
			f.formatTable(r, v, true)
			return true
		}
	}
	return false
}

func (f *MarkdownFormatter) formatTable(r *pipeline.Result, v tableView, withIncoming bool) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", v.table.Name)
	_, _ = fmt.Fprintf(f.writer, "_%s table at (%.0f, %.0f)_\n\n", v.node.Classification, v.node.Position.X, v.node.Position.Y)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	if len(v.table.Columns) == 0 {
		_, _ = fmt.Fprintln(f.writer, "- none")
	}
	for _, c := range v.table.Columns {
		if len(c.Constraints) > 0 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", c.Name, c.Type, strings.Join(c.Constraints, ", "))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", c.Name, c.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if out := outgoing(r, v.table.Name); len(out) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, e := range out {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (%s)\n", e.Label, e.TargetTable, e.Rule)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if !withIncoming {
		return
	}
	if in := incoming(r, v.table.Name); len(in) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, e := range in {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s (%s, %s)\n", e.SourceTable, e.SourceColumn, cardinality(r, e), e.Rule)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}
