package infer

import (
	"regexp"
	"strings"
)

var (
	typeReferencePattern       = regexp.MustCompile(`^(\w+)\(`)
	constraintReferencePattern = regexp.MustCompile("(?i)\\bREFERENCES\\s+[\"`\\[]?(\\w+)")
	foreignKeyMarkerPattern    = regexp.MustCompile(`(?i)\bFOREIGN\s+KEY\b`)
)

// TableIndex resolves table names case-insensitively. When two tables differ
// only by case, the one seen first wins.
type TableIndex struct {
	byLower map[string]string
}

// NewTableIndex builds an index over names in the given order.
func NewTableIndex(names []string) *TableIndex {
	idx := &TableIndex{byLower: make(map[string]string, len(names))}
	for _, name := range names {
		lower := strings.ToLower(name)
		if _, exists := idx.byLower[lower]; !exists {
			idx.byLower[lower] = name
		}
	}
	return idx
}

// Resolve returns the table whose name equals name, ignoring case.
func (idx *TableIndex) Resolve(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	table, ok := idx.byLower[strings.ToLower(name)]
	return table, ok
}

// ResolveBase resolves a base name by trying it as-is, pluralized with a
// trailing "s", and singularized by dropping a trailing "s".
func (idx *TableIndex) ResolveBase(base string) (string, bool) {
	if table, ok := idx.Resolve(base); ok {
		return table, true
	}
	if table, ok := idx.Resolve(base + "s"); ok {
		return table, true
	}
	if strings.HasSuffix(base, "s") || strings.HasSuffix(base, "S") {
		return idx.Resolve(base[:len(base)-1])
	}
	return "", false
}

// TypeReference extracts the identifier of a type written as a reference,
// e.g. "customers" from "customers(customer_id)".
func TypeReference(columnType string) (string, bool) {
	m := typeReferencePattern.FindStringSubmatch(columnType)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ConstraintReferences returns the REFERENCES targets named in constraints,
// in the order they appear.
func ConstraintReferences(constraints []string) []string {
	var targets []string
	for _, c := range constraints {
		for _, m := range constraintReferencePattern.FindAllStringSubmatch(c, -1) {
			targets = append(targets, m[1])
		}
	}
	return targets
}

// HasBareForeignKey reports whether any constraint carries a FOREIGN KEY
// marker without naming a REFERENCES target.
func HasBareForeignKey(constraints []string) bool {
	for _, c := range constraints {
		if foreignKeyMarkerPattern.MatchString(c) && !constraintReferencePattern.MatchString(c) {
			return true
		}
	}
	return false
}

// NamingBase strips a trailing "_id" from a column name. The second result
// reports whether the suffix was present.
func NamingBase(columnName string) (string, bool) {
	if strings.HasSuffix(columnName, "_id") {
		return strings.TrimSuffix(columnName, "_id"), true
	}
	return columnName, false
}
