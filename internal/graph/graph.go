// Package graph assembles classifications, relationships and positions into
// the node/edge structure handed to a renderer.
package graph

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/classify"
	"github.com/tordrt/schemagraph/internal/infer"
	"github.com/tordrt/schemagraph/internal/layout"
	"github.com/tordrt/schemagraph/internal/model"
)

// DefaultSummaryColumns is the number of columns listed in a node summary
// before the rest are elided.
const DefaultSummaryColumns = 10

// maxSummaryLine caps a single summary line, in runes.
const maxSummaryLine = 60

// Node is one table in the rendered graph.
type Node struct {
	ID             string         `json:"id"`
	Classification classify.Class `json:"classification"`
	Position       layout.Point   `json:"position"`
	DisplaySummary string         `json:"displaySummary"`
	PKColumns      []string       `json:"pkColumns,omitempty"`
	FKColumns      []string       `json:"fkColumns,omitempty"`
}

// Edge is one relationship in the rendered graph.
type Edge struct {
	ID     string     `json:"id"`
	Source string     `json:"source"`
	Target string     `json:"target"`
	Label  string     `json:"label"`
	Rule   infer.Rule `json:"rule,omitempty"`
}

// Graph is the renderer-facing output.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty returns a graph with no nodes and no edges.
func Empty() *Graph {
	return &Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// Build merges the stage outputs into a graph. Nodes follow schema order and
// edges follow the order given.
func Build(s *model.Schema, classes map[string]classify.Class, edges []infer.Edge, positions map[string]layout.Point, summaryColumns int) *Graph {
	g := Empty()
	if s == nil {
		return g
	}
	if summaryColumns <= 0 {
		summaryColumns = DefaultSummaryColumns
	}

	for _, t := range s.Tables {
		class, ok := classes[t.Name]
		if !ok {
			class = classify.Dimension
		}
		pk, fk := KeyColumns(t)
		g.Nodes = append(g.Nodes, Node{
			ID:             t.Name,
			Classification: class,
			Position:       positions[t.Name],
			DisplaySummary: Summary(t.Columns, summaryColumns),
			PKColumns:      pk,
			FKColumns:      fk,
		})
	}

	for _, e := range edges {
		g.Edges = append(g.Edges, Edge{
			ID:     EdgeID(e),
			Source: e.SourceTable,
			Target: e.TargetTable,
			Label:  e.Label,
			Rule:   e.Rule,
		})
	}

	return g
}

// EdgeID derives a stable identifier from an edge's identity key.
func EdgeID(e infer.Edge) string {
	return fmt.Sprintf("%s.%s->%s", e.SourceTable, e.SourceColumn, e.TargetTable)
}

// Summary renders up to limit columns as "name: TYPE [constraints]" lines.
func Summary(columns []model.Column, limit int) string {
	if len(columns) == 0 {
		return "no columns"
	}

	shown := columns
	if len(shown) > limit {
		shown = shown[:limit]
	}

	lines := make([]string, 0, len(shown)+1)
	for _, c := range shown {
		line := c.Name + ": " + c.Type
		if len(c.Constraints) > 0 {
			line += " [" + strings.Join(c.Constraints, ", ") + "]"
		}
		lines = append(lines, truncate(line, maxSummaryLine))
	}
	if rest := len(columns) - len(shown); rest > 0 {
		lines = append(lines, fmt.Sprintf("+%d more", rest))
	}

	return strings.Join(lines, "\n")
}

// KeyColumns lists the columns whose constraints mention a primary key and a
// foreign key, in column order.
func KeyColumns(t model.Table) (pk, fk []string) {
	for _, c := range t.Columns {
		var isPK, isFK bool
		for _, constraint := range c.Constraints {
			lower := strings.ToLower(constraint)
			isPK = isPK || strings.Contains(lower, "primary key")
			isFK = isFK || strings.Contains(lower, "foreign key")
		}
		if isPK {
			pk = append(pk, c.Name)
		}
		if isFK {
			fk = append(fk, c.Name)
		}
	}
	return pk, fk
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
