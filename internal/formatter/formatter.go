// Package formatter renders pipeline results as text, tables, markdown or JSON.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemagraph/internal/graph"
	"github.com/tordrt/schemagraph/internal/infer"
	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// Output formats.
const (
	FormatText     = "text"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formatter writes a rendered result.
type Formatter interface {
	Format(r *pipeline.Result) error
}

// Formats lists the single-stream output formats.
func Formats() []string {
	return []string{FormatText, FormatTable, FormatMarkdown, FormatJSON}
}

// New returns the formatter for format writing to w.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatTable:
		return NewTableFormatter(w), nil
	case FormatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	}
	return nil, fmt.Errorf("invalid format: %s (must be one of %s)", format, strings.Join(Formats(), ", "))
}

// tableView pairs a table with its graph node. Nodes are built in schema
// order, so the two line up by index.
type tableView struct {
	table model.Table
	node  graph.Node
}

func views(r *pipeline.Result) []tableView {
	if r == nil || r.Schema == nil || r.Graph == nil {
		return nil
	}
	out := make([]tableView, 0, len(r.Schema.Tables))
	for i, t := range r.Schema.Tables {
		if i >= len(r.Graph.Nodes) {
			break
		}
		out = append(out, tableView{table: t, node: r.Graph.Nodes[i]})
	}
	return out
}

func outgoing(r *pipeline.Result, table string) []infer.Edge {
	var edges []infer.Edge
	for _, e := range r.Edges {
		if e.SourceTable == table {
			edges = append(edges, e)
		}
	}
	return edges
}

func incoming(r *pipeline.Result, table string) []infer.Edge {
	var edges []infer.Edge
	for _, e := range r.Edges {
		if e.TargetTable == table {
			edges = append(edges, e)
		}
	}
	return edges
}

func targets(edges []infer.Edge) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range edges {
		if !seen[e.TargetTable] {
			seen[e.TargetTable] = true
			out = append(out, e.TargetTable)
		}
	}
	return out
}

// cardinality reads an edge from the referencing side: a key or unique source
// column makes it 1:1, anything else N:1.
func cardinality(r *pipeline.Result, e infer.Edge) string {
	t, ok := r.Schema.Table(e.SourceTable)
	if !ok {
		return "N:1"
	}
	for _, c := range t.Columns {
		if c.Name != e.SourceColumn {
			continue
		}
		for _, con := range c.Constraints {
			upper := strings.ToUpper(con)
			if strings.Contains(upper, "PRIMARY KEY") || strings.Contains(upper, "UNIQUE") {
				return "1:1"
			}
		}
		break
	}
	return "N:1"
}

func formatColumn(c model.Column) string {
	parts := []string{c.Name + ":", c.Type}
	parts = append(parts, c.Constraints...)
	return strings.Join(parts, " ")
}

func header(r *pipeline.Result) string {
	variant := r.Variant
	if r.Derived {
		variant += ", derived from original"
	}
	return fmt.Sprintf("%s schema (%s), %d tables, %d relationships",
		r.Domain, variant, r.Schema.Len(), len(r.Edges))
}

func gapsTitle(r *pipeline.Result) string {
	return fmt.Sprintf("Compared with the %s reference warehouse", r.Gaps.Domain)
}

// gapLines lists missing tables first, then each table with missing columns.
func gapLines(r *pipeline.Result) []string {
	if r == nil || r.Gaps.Empty() {
		return nil
	}
	var lines []string
	if len(r.Gaps.MissingTables) > 0 {
		lines = append(lines, "missing tables: "+strings.Join(r.Gaps.MissingTables, ", "))
	}
	for _, tc := range r.Gaps.MissingColumns {
		lines = append(lines, fmt.Sprintf("%s is missing: %s", tc.Table, strings.Join(tc.Columns, ", ")))
	}
	return lines
}

func writeGapsText(w io.Writer, r *pipeline.Result) {
	lines := gapLines(r)
	if len(lines) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, strings.ToUpper(gapsTitle(r))+":")
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "  %s\n", l)
	}
}

func writeGapsMarkdown(w io.Writer, r *pipeline.Result) {
	lines := gapLines(r)
	if len(lines) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "## %s\n\n", gapsTitle(r))
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "- %s\n", l)
	}
	_, _ = fmt.Fprintln(w)
}
