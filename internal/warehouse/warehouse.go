// Package warehouse derives a star-schema warehouse from an operational
// schema and checks warehouses against per-domain reference layouts.
package warehouse

import (
	"strings"

	"github.com/tordrt/schemagraph/internal/infer"
	"github.com/tordrt/schemagraph/internal/model"
)

// minFactTargets is the number of distinct referenced tables that makes a
// table a fact table.
const minFactTargets = 2

// Layout is a warehouse split into fact and dimension tables.
type Layout struct {
	Facts      []model.Table
	Dimensions []model.Table
}

// Tables returns fact tables followed by dimension tables.
func (l *Layout) Tables() []model.Table {
	out := make([]model.Table, 0, len(l.Facts)+len(l.Dimensions))
	out = append(out, l.Facts...)
	return append(out, l.Dimensions...)
}

// Raw returns the layout as a raw schema, fact tables first.
func (l *Layout) Raw() model.RawSchema {
	tables := l.Tables()
	raw := model.RawSchema{Tables: make([]model.RawTable, 0, len(tables))}
	for _, t := range tables {
		rt := model.RawTable{Name: t.Name, Columns: make([]model.RawColumn, 0, len(t.Columns))}
		for _, c := range t.Columns {
			rt.Columns = append(rt.Columns, model.RawColumn{
				Name:        c.Name,
				Type:        c.Type,
				Constraints: append([]string{}, c.Constraints...),
			})
		}
		raw.Tables = append(raw.Tables, rt)
	}
	return raw
}

// Generate derives a warehouse from an operational schema. Column names are
// standardized, tables that reference two or more distinct tables become
// fact tables, and dimension tables get full_name and audit timestamp
// columns. Table names and constraints are kept as given.
func Generate(raw model.RawSchema) *Layout {
	s := model.Normalize(raw)
	idx := infer.NewTableIndex(s.Names())

	l := &Layout{Facts: []model.Table{}, Dimensions: []model.Table{}}
	for _, t := range s.Tables {
		t = standardizeColumns(t)
		if len(referencedTables(idx, t)) >= minFactTargets {
			l.Facts = append(l.Facts, t)
			continue
		}
		l.Dimensions = append(l.Dimensions, combineColumns(t))
	}
	return l
}

// referencedTables returns the distinct tables a table's columns point at,
// lowercased. Constraint targets count whether or not the table exists; type
// references only when they name a table of the schema.
func referencedTables(idx *infer.TableIndex, t model.Table) map[string]bool {
	targets := map[string]bool{}
	for _, c := range t.Columns {
		for _, ref := range infer.ConstraintReferences(c.Constraints) {
			targets[strings.ToLower(ref)] = true
		}
		if ref, ok := infer.TypeReference(c.Type); ok {
			if name, ok := idx.Resolve(ref); ok {
				targets[strings.ToLower(name)] = true
			}
		}
	}
	return targets
}

// columnVariations maps standard column names to the spellings folded into
// them. Order matters: a spelling listed under two names takes the first.
var columnVariations = []struct {
	standard   string
	variations []string
}{
	{"customer_id", []string{"customer_id", "cust_id", "c_id"}},
	{"product_id", []string{"product_id", "prod_id", "p_id"}},
	{"order_id", []string{"order_id", "ord_id", "o_id"}},
	{"first_name", []string{"first_name", "firstname", "f_name", "fname"}},
	{"last_name", []string{"last_name", "lastname", "l_name", "lname"}},
	{"full_name", []string{"full_name", "fullname", "name"}},
	{"email", []string{"email", "email_address", "e_mail"}},
	{"phone", []string{"phone", "phone_number", "contact_number"}},
	{"quantity", []string{"quantity", "qty", "amount"}},
	{"price", []string{"price", "cost", "amount"}},
	{"total_amount", []string{"total_amount", "total", "amount_due", "total_price"}},
	{"order_date", []string{"order_date", "date", "order_timestamp"}},
	{"created_at", []string{"created_at", "creation_date", "created_on"}},
	{"updated_at", []string{"updated_at", "updated_on", "modification_date"}},
}

// StandardColumnName lowercases a column name and maps known spellings to
// their standard form.
func StandardColumnName(name string) string {
	name = strings.ToLower(name)
	for _, cv := range columnVariations {
		for _, v := range cv.variations {
			if name == v {
				return cv.standard
			}
		}
	}
	return name
}

// standardizeColumns renames columns to their standard names. When two
// columns end up with the same name, the first is kept.
func standardizeColumns(t model.Table) model.Table {
	out := model.Table{Name: t.Name, Columns: make([]model.Column, 0, len(t.Columns))}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		c.Name = StandardColumnName(c.Name)
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		c.Constraints = append([]string{}, c.Constraints...)
		out.Columns = append(out.Columns, c)
	}
	return out
}

// combineColumns replaces first_name/last_name with full_name and adds
// created_at/updated_at when missing.
func combineColumns(t model.Table) model.Table {
	has := func(name string) bool {
		for _, c := range t.Columns {
			if c.Name == name {
				return true
			}
		}
		return false
	}

	if has("first_name") && has("last_name") {
		kept := t.Columns[:0:0]
		for _, c := range t.Columns {
			if c.Name != "first_name" && c.Name != "last_name" {
				kept = append(kept, c)
			}
		}
		t.Columns = kept
		if !has("full_name") {
			t.Columns = append(t.Columns, model.Column{Name: "full_name", Type: "VARCHAR(100)", Constraints: []string{}})
		}
	}

	for _, name := range []string{"created_at", "updated_at"} {
		if !has(name) {
			t.Columns = append(t.Columns, model.Column{Name: name, Type: "TIMESTAMP", Constraints: []string{}})
		}
	}
	return t
}
