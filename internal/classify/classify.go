// Package classify labels tables as fact or dimension tables.
package classify

import (
	"strings"

	"github.com/tordrt/schemagraph/internal/model"
)

// Class is a table classification.
type Class string

const (
	Fact      Class = "fact"
	Dimension Class = "dimension"
)

// factMarkers are name fragments that mark a table as transactional.
var factMarkers = []string{"fact", "sales", "transaction", "order", "event"}

// minForeignKeys is exclusive: a table needs more than this many
// foreign-key-looking columns to count as a fact table.
const minForeignKeys = 2

// FactTables returns the set of fact table names for a schema variant. The
// original variant never has fact tables.
func FactTables(s *model.Schema, variant string) map[string]bool {
	facts := make(map[string]bool)
	if variant == model.VariantOriginal || s == nil {
		return facts
	}
	for _, t := range s.Tables {
		if IsFact(t) {
			facts[t.Name] = true
		}
	}
	return facts
}

// Classify returns the class of every table in the schema.
func Classify(s *model.Schema, variant string) map[string]Class {
	facts := FactTables(s, variant)
	classes := make(map[string]Class, s.Len())
	for _, name := range s.Names() {
		if facts[name] {
			classes[name] = Fact
		} else {
			classes[name] = Dimension
		}
	}
	return classes
}

// IsFact reports whether a table looks transactional, either by name or by
// the number of columns that look like foreign keys.
func IsFact(t model.Table) bool {
	if HasFactMarker(t.Name) {
		return true
	}
	return CountForeignKeyLike(t) > minForeignKeys
}

// HasFactMarker reports whether a table name contains a transactional marker.
func HasFactMarker(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range factMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// CountForeignKeyLike counts the columns of t that look like foreign keys.
func CountForeignKeyLike(t model.Table) int {
	n := 0
	for _, c := range t.Columns {
		if LooksLikeForeignKey(c) {
			n++
		}
	}
	return n
}

// LooksLikeForeignKey reports whether a column carries a FOREIGN KEY or
// REFERENCES constraint, or is named like a key (*_id, *_key).
func LooksLikeForeignKey(c model.Column) bool {
	for _, constraint := range c.Constraints {
		upper := strings.ToUpper(constraint)
		if strings.Contains(upper, "FOREIGN KEY") || strings.Contains(upper, "REFERENCES") {
			return true
		}
	}
	return strings.HasSuffix(c.Name, "_id") || strings.HasSuffix(c.Name, "_key")
}
