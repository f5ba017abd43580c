// Package infer derives table relationships from column types, constraint
// text and naming conventions.
//
// Each column is run through an ordered cascade and yields at most one edge:
//
//  1. a type written as a reference, e.g. "customers(customer_id)";
//  2. a REFERENCES target in the constraints, or a bare FOREIGN KEY marker
//     resolved through the column name;
//  3. a "<table>_id" column name.
//
// The first rule that resolves to an existing table wins. A resolution that
// points back at the column's own table consumes the column without an edge;
// later rules are not tried for it.
package infer

import (
	"github.com/tordrt/schemagraph/internal/model"
)

// Rule names the cascade step that produced an edge.
type Rule string

const (
	RuleTypeReference       Rule = "type_reference"
	RuleConstraintReference Rule = "constraint_reference"
	RuleForeignKeyNaming    Rule = "foreign_key_naming"
	RuleNamingConvention    Rule = "naming_convention"
)

// Edge is a directed relationship from a source column to a target table.
type Edge struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	Label        string
	Rule         Rule
}

// Key identifies an edge for deduplication.
type Key struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
}

// Key returns the identity key of the edge.
func (e Edge) Key() Key {
	return Key{SourceTable: e.SourceTable, SourceColumn: e.SourceColumn, TargetTable: e.TargetTable}
}

// Infer returns the deduplicated relationships of a schema in table/column order.
// A column that resolves to its own table yields no edge, and no lower rule is
// tried for it.
func Infer(s *model.Schema) []Edge {
	edges := []Edge{}
	if s == nil {
		return edges
	}

	idx := NewTableIndex(s.Names())
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			target, rule, ok := ResolveColumn(idx, c)
			if !ok || target == t.Name {
				continue
			}
			edges = append(edges, Edge{
				SourceTable:  t.Name,
				SourceColumn: c.Name,
				TargetTable:  target,
				Label:        c.Name,
				Rule:         rule,
			})
		}
	}

	return Dedupe(edges)
}

// ResolveColumn runs the cascade for one column and returns the first table it
// resolves to. The result may be the column's own table; callers decide what
// to do with self references.
func ResolveColumn(idx *TableIndex, c model.Column) (string, Rule, bool) {
	if ref, ok := TypeReference(c.Type); ok {
		if target, ok := idx.Resolve(ref); ok {
			return target, RuleTypeReference, true
		}
	}

	for _, ref := range ConstraintReferences(c.Constraints) {
		if target, ok := idx.Resolve(ref); ok {
			return target, RuleConstraintReference, true
		}
	}

	if HasBareForeignKey(c.Constraints) {
		base, _ := NamingBase(c.Name)
		if target, ok := idx.ResolveBase(base); ok {
			return target, RuleForeignKeyNaming, true
		}
	}

	if base, ok := NamingBase(c.Name); ok {
		if target, ok := idx.ResolveBase(base); ok {
			return target, RuleNamingConvention, true
		}
	}

	return "", "", false
}

// Dedupe drops edges whose key was already seen, keeping the first.
func Dedupe(edges []Edge) []Edge {
	seen := make(map[Key]bool, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	return out
}
