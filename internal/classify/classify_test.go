package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tordrt/schemagraph/internal/model"
)

func col(name string, constraints ...string) model.Column {
	return model.Column{Name: name, Type: "INT", Constraints: constraints}
}

func TestLooksLikeForeignKey(t *testing.T) {
	tests := []struct {
		name   string
		column model.Column
		want   bool
	}{
		{name: "id suffix", column: col("customer_id"), want: true},
		{name: "key suffix", column: col("date_key"), want: true},
		{name: "foreign key constraint", column: col("customer", "foreign key"), want: true},
		{name: "references constraint", column: col("owner", "NOT NULL REFERENCES users(id)"), want: true},
		{name: "plain column", column: col("amount", "NOT NULL"), want: false},
		{name: "id without underscore", column: col("id", "PRIMARY KEY"), want: false},
		{name: "uppercase suffix is not matched", column: col("CUSTOMER_ID"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeForeignKey(tt.column))
		})
	}
}

func TestHasFactMarker(t *testing.T) {
	for _, name := range []string{"sales_fact", "Orders", "order_items", "TRANSACTIONS", "page_events", "monthly_sales"} {
		assert.True(t, HasFactMarker(name), name)
	}
	for _, name := range []string{"customers", "products", "dim_date", "stores"} {
		assert.False(t, HasFactMarker(name), name)
	}
}

func TestIsFact(t *testing.T) {
	tests := []struct {
		name  string
		table model.Table
		want  bool
	}{
		{
			name:  "name marker",
			table: model.Table{Name: "orders"},
			want:  true,
		},
		{
			name: "three key columns",
			table: model.Table{Name: "bookings", Columns: []model.Column{
				col("id", "PRIMARY KEY"), col("guest_id"), col("room_id"), col("agent", "FOREIGN KEY"),
			}},
			want: true,
		},
		{
			name: "two key columns is not enough",
			table: model.Table{Name: "bookings", Columns: []model.Column{
				col("guest_id"), col("room_id"), col("nights"),
			}},
			want: false,
		},
		{
			name:  "plain dimension",
			table: model.Table{Name: "customers", Columns: []model.Column{col("customer_id", "PRIMARY KEY")}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFact(tt.table))
		})
	}
}

func testSchema() *model.Schema {
	return &model.Schema{Tables: []model.Table{
		{Name: "customers", Columns: []model.Column{col("customer_id", "PRIMARY KEY")}},
		{Name: "orders", Columns: []model.Column{col("order_id", "PRIMARY KEY"), col("customer_id", "FOREIGN KEY")}},
		{Name: "shipments", Columns: []model.Column{col("a_id"), col("b_id"), col("c_key")}},
	}}
}

func TestFactTables(t *testing.T) {
	facts := FactTables(testSchema(), model.VariantWarehouse)
	assert.Equal(t, map[string]bool{"orders": true, "shipments": true}, facts)
}

func TestFactTablesOriginalVariantIsEmpty(t *testing.T) {
	assert.Empty(t, FactTables(testSchema(), model.VariantOriginal))

	classes := Classify(testSchema(), model.VariantOriginal)
	for name, class := range classes {
		assert.Equal(t, Dimension, class, name)
	}
}

func TestClassifyIsOrderIndependent(t *testing.T) {
	s := testSchema()
	reversed := &model.Schema{}
	for i := len(s.Tables) - 1; i >= 0; i-- {
		reversed.Tables = append(reversed.Tables, s.Tables[i])
	}

	assert.Equal(t, Classify(s, model.VariantAIEnhanced), Classify(reversed, model.VariantAIEnhanced))
}

func TestClassifyNilSchema(t *testing.T) {
	assert.Empty(t, FactTables(nil, model.VariantWarehouse))
	assert.Empty(t, Classify(nil, model.VariantWarehouse))
}
