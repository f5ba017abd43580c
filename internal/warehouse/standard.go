package warehouse

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemagraph/internal/model"
)

//go:embed standard.yaml
var standardYAML []byte

type standardColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type standardTable struct {
	Name    string           `yaml:"name"`
	Columns []standardColumn `yaml:"columns"`
}

type standardSchema struct {
	Domain          string          `yaml:"domain"`
	FactTables      []standardTable `yaml:"fact_tables"`
	DimensionTables []standardTable `yaml:"dimension_tables"`
}

type reference struct {
	domains []string
	layouts map[string]*Layout
}

// references is parsed once from the embedded file. A parse failure is a
// build defect, so it panics.
var references = sync.OnceValue(func() *reference {
	var docs []standardSchema
	if err := yaml.Unmarshal(standardYAML, &docs); err != nil {
		panic(fmt.Sprintf("warehouse: malformed reference layouts: %v", err))
	}

	ref := &reference{layouts: make(map[string]*Layout, len(docs))}
	for _, d := range docs {
		ref.domains = append(ref.domains, d.Domain)
		ref.layouts[d.Domain] = &Layout{
			Facts:      toTables(d.FactTables),
			Dimensions: toTables(d.DimensionTables),
		}
	}
	return ref
})

func toTables(in []standardTable) []model.Table {
	out := make([]model.Table, 0, len(in))
	for _, st := range in {
		t := model.Table{Name: st.Name, Columns: make([]model.Column, 0, len(st.Columns))}
		for _, c := range st.Columns {
			t.Columns = append(t.Columns, model.Column{Name: c.Name, Type: c.Type, Constraints: []string{}})
		}
		out = append(out, t)
	}
	return out
}

// Domains lists the domains that have a reference layout.
func Domains() []string {
	return append([]string{}, references().domains...)
}

// Standard returns the reference layout for a domain.
func Standard(domainName string) (*Layout, bool) {
	l, ok := references().layouts[domainName]
	return l, ok
}

// tableVariations lists the table names accepted for a reference table
// besides its own name.
var tableVariations = map[string][]string{
	"customer_dimension": {"customers", "customer", "cust_dim"},
	"product_dimension":  {"products", "product", "prod_dim"},
	"date_dimension":     {"dates", "date", "time_dim"},
	"store_dimension":    {"stores", "store", "location_dim"},
	"sales_fact":         {"sales", "orders", "order_items", "order_facts"},
}

// TableColumns names the columns a table lacks.
type TableColumns struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// Gaps lists what a warehouse lacks compared with a domain's reference layout.
type Gaps struct {
	Domain         string         `json:"domain"`
	MissingTables  []string       `json:"missingTables"`
	MissingColumns []TableColumns `json:"missingColumns"`
}

// Empty reports whether nothing is missing.
func (g *Gaps) Empty() bool {
	return g == nil || (len(g.MissingTables) == 0 && len(g.MissingColumns) == 0)
}

// Compare checks s against the reference layout for domainName, in reference
// order. It returns nil when the domain has no reference layout. A reference
// table is matched by name ignoring case, then by its known variations;
// column names are compared lowercased.
func Compare(s *model.Schema, domainName string) *Gaps {
	std, ok := Standard(domainName)
	if !ok {
		return nil
	}

	g := &Gaps{Domain: domainName, MissingTables: []string{}, MissingColumns: []TableColumns{}}
	for _, st := range std.Tables() {
		t, ok := matchTable(s, st.Name)
		if !ok {
			g.MissingTables = append(g.MissingTables, st.Name)
			continue
		}

		have := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			have[strings.ToLower(c.Name)] = true
		}
		var missing []string
		for _, c := range st.Columns {
			if !have[strings.ToLower(c.Name)] {
				missing = append(missing, c.Name)
			}
		}
		if len(missing) > 0 {
			g.MissingColumns = append(g.MissingColumns, TableColumns{Table: st.Name, Columns: missing})
		}
	}
	return g
}

func matchTable(s *model.Schema, name string) (*model.Table, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i], true
		}
	}
	for _, v := range tableVariations[name] {
		for i := range s.Tables {
			if strings.EqualFold(s.Tables[i].Name, v) {
				return &s.Tables[i], true
			}
		}
	}
	return nil, false
}
