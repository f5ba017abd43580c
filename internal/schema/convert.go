package schema

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemagraph/internal/model"
)

// ToRaw turns introspected tables into the raw schema form, spelling declared
// metadata as the constraint strings the relationship rules read.
func ToRaw(s *Schema) model.RawSchema {
	if s == nil {
		return model.RawSchema{}
	}

	raw := model.RawSchema{Tables: make([]model.RawTable, 0, len(s.Tables))}
	for _, t := range s.Tables {
		raw.Tables = append(raw.Tables, tableToRaw(t))
	}
	return raw
}

func tableToRaw(t Table) model.RawTable {
	pk := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pk[c] = true
	}
	refs := make(map[string]Relation, len(t.Relations))
	for _, r := range t.Relations {
		if _, ok := refs[r.SourceColumn]; !ok {
			refs[r.SourceColumn] = r
		}
	}

	rt := model.RawTable{Name: t.Name, Columns: make([]model.RawColumn, 0, len(t.Columns))}
	for _, c := range t.Columns {
		constraints := []string{}
		if pk[c.Name] {
			constraints = append(constraints, "PRIMARY KEY")
		}
		if !c.Nullable {
			constraints = append(constraints, "NOT NULL")
		}
		if c.IsUnique {
			constraints = append(constraints, "UNIQUE")
		}
		if c.DefaultValue != nil {
			constraints = append(constraints, "DEFAULT "+*c.DefaultValue)
		}
		if c.CheckConstraint != nil {
			constraints = append(constraints, fmt.Sprintf("CHECK(%s)", *c.CheckConstraint))
		}
		if r, ok := refs[c.Name]; ok {
			constraints = append(constraints, fmt.Sprintf("FOREIGN KEY REFERENCES %s(%s)", r.TargetTable, r.TargetColumn))
		}

		rt.Columns = append(rt.Columns, model.RawColumn{
			Name:        c.Name,
			Type:        columnType(c),
			Constraints: constraints,
		})
	}
	return rt
}

// columnType folds enum values into the type as enum(a|b).
func columnType(c Column) string {
	if len(c.EnumValues) == 0 {
		return c.Type
	}
	return "enum(" + strings.Join(c.EnumValues, "|") + ")"
}
