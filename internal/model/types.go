// Package model holds the schema shapes the rest of the pipeline works on: the
// loose form a schema source delivers, and the canonical form Normalize turns it into.
package model

// Placeholders substituted for missing column fields.
const (
	UnnamedColumn = "unnamed_column"
	UnknownType   = "UNKNOWN"
)

// Schema variants. Only VariantOriginal has special meaning to the pipeline.
const (
	VariantOriginal   = "original"
	VariantWarehouse  = "warehouse"
	VariantAIEnhanced = "ai_enhanced"
)

// RawColumn is a column descriptor exactly as a schema source delivered it.
// Name and Type are usually strings; Constraints may be a string, a list of
// strings, a list of mixed values, or nil.
type RawColumn struct {
	Name        any `json:"name,omitempty" yaml:"name,omitempty"`
	Type        any `json:"type,omitempty" yaml:"type,omitempty"`
	Constraints any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// RawTable is a table descriptor. Columns is nil when the source omitted the
// column list or sent something that is not a list.
type RawTable struct {
	Name    string
	Columns []RawColumn
}

// RawSchema is an ordered table-name → descriptor mapping. Order is the order
// tables appeared in the source document.
type RawSchema struct {
	Tables []RawTable
}

// SchemaSet maps a variant name to the schema view stored under it.
type SchemaSet map[string]RawSchema

// Column is a normalized column.
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

// Table is a normalized table. Columns is never nil.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Schema is the canonical schema the pipeline stages consume.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Len returns the number of tables.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Tables)
}

// Names returns table names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, 0, s.Len())
	if s == nil {
		return names
	}
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Table looks a table up by its exact name.
func (s *Schema) Table(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}
