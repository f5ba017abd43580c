package model

import "strings"

// Normalize turns a raw schema into its canonical form. It never fails: missing
// or wrong-shaped fields are replaced by placeholders. When the same table name
// appears more than once, the first occurrence wins. Names that differ only by
// case are distinct tables.
func Normalize(raw RawSchema) *Schema {
	s := &Schema{Tables: make([]Table, 0, len(raw.Tables))}
	seen := make(map[string]bool, len(raw.Tables))

	for _, rt := range raw.Tables {
		if seen[rt.Name] {
			continue
		}
		seen[rt.Name] = true

		t := Table{Name: rt.Name, Columns: make([]Column, 0, len(rt.Columns))}
		for _, rc := range rt.Columns {
			t.Columns = append(t.Columns, normalizeColumn(rc))
		}
		s.Tables = append(s.Tables, t)
	}

	return s
}

func normalizeColumn(rc RawColumn) Column {
	return Column{
		Name:        stringOr(rc.Name, UnnamedColumn),
		Type:        stringOr(rc.Type, UnknownType),
		Constraints: NormalizeConstraints(rc.Constraints),
	}
}

// NormalizeConstraints coerces a constraints value into a list of strings.
// A bare string becomes a one-element list, nil becomes an empty list, and
// non-string or blank entries are dropped.
func NormalizeConstraints(v any) []string {
	out := []string{}
	switch c := v.(type) {
	case string:
		out = appendConstraint(out, c)
	case []string:
		for _, item := range c {
			out = appendConstraint(out, item)
		}
	case []any:
		for _, item := range c {
			if s, ok := item.(string); ok {
				out = appendConstraint(out, s)
			}
		}
	}
	return out
}

func appendConstraint(out []string, c string) []string {
	if strings.TrimSpace(c) == "" {
		return out
	}
	return append(out, c)
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
