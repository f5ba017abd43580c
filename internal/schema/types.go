// Package schema holds table metadata introspected from a live database.
package schema

// Schema is the set of tables read from one database schema.
type Schema struct {
	Tables []Table
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	PrimaryKey []string
}

// Column represents a table column
type Column struct {
	Name            string
	Type            string
	Nullable        bool
	DefaultValue    *string
	IsUnique        bool
	EnumValues      []string
	CheckConstraint *string
}

// Relation is a declared foreign key from SourceColumn to TargetTable.TargetColumn.
type Relation struct {
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// Exclude drops the named tables, keeping the order of the rest.
func (s *Schema) Exclude(names []string) {
	if s == nil || len(names) == 0 {
		return
	}

	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		excluded[n] = true
	}

	kept := make([]Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		if !excluded[t.Name] {
			kept = append(kept, t)
		}
	}
	s.Tables = kept
}
