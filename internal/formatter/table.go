package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tordrt/schemagraph/internal/pipeline"
)

// TableFormatter renders nodes and edges as two boxed tables.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format implements Formatter.
func (f *TableFormatter) Format(r *pipeline.Result) error {
	_, _ = fmt.Fprintln(f.writer, header(r))

	nodes := f.newWriter()
	nodes.AppendHeader(table.Row{"Table", "Class", "X", "Y", "Columns", "PK", "FK"})
	for _, v := range views(r) {
		nodes.AppendRow(table.Row{
			v.table.Name,
			string(v.node.Classification),
			fmt.Sprintf("%.1f", v.node.Position.X),
			fmt.Sprintf("%.1f", v.node.Position.Y),
			len(v.table.Columns),
			strings.Join(v.node.PKColumns, ", "),
			strings.Join(v.node.FKColumns, ", "),
		})
	}
	nodes.Render()

	if len(r.Edges) == 0 {
		_, _ = fmt.Fprintln(f.writer, "(0 relationships)")
	} else {
		edges := f.newWriter()
		edges.AppendHeader(table.Row{"Source", "Column", "Target", "Rule"})
		for _, e := range r.Edges {
			edges.AppendRow(table.Row{e.SourceTable, e.SourceColumn, e.TargetTable, string(e.Rule)})
		}
		edges.Render()
		_, _ = fmt.Fprintf(f.writer, "(%d relationships)\n", len(r.Edges))
	}

	f.formatGaps(r)
	return nil
}

func (f *TableFormatter) formatGaps(r *pipeline.Result) {
	if r.Gaps.Empty() {
		return
	}
	_, _ = fmt.Fprintln(f.writer, gapsTitle(r))

	gaps := f.newWriter()
	gaps.AppendHeader(table.Row{"Reference table", "Missing"})
	for _, name := range r.Gaps.MissingTables {
		gaps.AppendRow(table.Row{name, "(table)"})
	}
	for _, tc := range r.Gaps.MissingColumns {
		gaps.AppendRow(table.Row{tc.Table, strings.Join(tc.Columns, ", ")})
	}
	gaps.Render()
}

func (f *TableFormatter) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.SetStyle(table.StyleLight)
	return t
}
