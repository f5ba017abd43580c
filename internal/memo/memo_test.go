package memo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemagraph/internal/model"
)

func schemaWith(names ...string) model.RawSchema {
	raw := model.RawSchema{}
	for _, n := range names {
		raw.Tables = append(raw.Tables, model.RawTable{Name: n, Columns: []model.RawColumn{{Name: "id", Type: "INT"}}})
	}
	return raw
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(schemaWith("a", "b"), model.VariantWarehouse)
	require.NoError(t, err)
	again, err := Fingerprint(schemaWith("a", "b"), model.VariantWarehouse)
	require.NoError(t, err)
	assert.Equal(t, a, again)

	otherVariant, err := Fingerprint(schemaWith("a", "b"), model.VariantOriginal)
	require.NoError(t, err)
	assert.NotEqual(t, a, otherVariant)

	otherOrder, err := Fingerprint(schemaWith("b", "a"), model.VariantWarehouse)
	require.NoError(t, err)
	assert.NotEqual(t, a, otherOrder)

	_, err = Fingerprint(model.RawSchema{Tables: []model.RawTable{{Name: "x", Columns: []model.RawColumn{{Name: make(chan int)}}}}}, "v")
	assert.Error(t, err)
}

func TestCacheReturnsSameResult(t *testing.T) {
	c := New(4, nil)
	set := model.SchemaSet{model.VariantWarehouse: schemaWith("orders", "customers")}

	first, err := c.Run(set, model.VariantWarehouse)
	require.NoError(t, err)
	second, err := c.Run(set, model.VariantWarehouse)
	require.NoError(t, err)

	assert.Same(t, first, second)
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCacheEvictsOldest(t *testing.T) {
	c := New(2, nil)
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.RunSchema(schemaWith(name), model.VariantWarehouse)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	_, err := c.RunSchema(schemaWith("a"), model.VariantWarehouse)
	require.NoError(t, err)
	_, misses := c.Stats()
	assert.Equal(t, 4, misses)
}

func TestCacheConcurrentCallers(t *testing.T) {
	c := New(0, nil)
	raw := schemaWith("orders", "customers", "products")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.RunSchema(raw, model.VariantWarehouse)
			assert.NoError(t, err)
			assert.Len(t, r.Graph.Nodes, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	_, misses := c.Stats()
	assert.Equal(t, 1, misses)
}

func TestCacheDerivesWarehouse(t *testing.T) {
	orig := model.RawSchema{Tables: []model.RawTable{
		{Name: "customers", Columns: []model.RawColumn{{Name: "cust_id", Type: "INT"}}},
		{Name: "products", Columns: []model.RawColumn{{Name: "id", Type: "INT"}}},
		{Name: "orders", Columns: []model.RawColumn{
			{Name: "customer_id", Type: "INT", Constraints: "REFERENCES customers(customer_id)"},
			{Name: "product_id", Type: "INT", Constraints: "REFERENCES products(id)"},
		}},
	}}
	c := New(4, nil)

	derived, err := c.Run(model.SchemaSet{model.VariantOriginal: orig}, model.VariantWarehouse)
	require.NoError(t, err)
	assert.True(t, derived.Derived)
	assert.Equal(t, []string{"orders", "customers", "products"}, derived.Schema.Names())

	stored, err := c.RunSchema(pipelineRaw(derived.Schema), model.VariantWarehouse)
	require.NoError(t, err)
	assert.False(t, stored.Derived)
	assert.NotSame(t, derived, stored)

	again, err := c.Run(model.SchemaSet{model.VariantOriginal: orig}, model.VariantWarehouse)
	require.NoError(t, err)
	assert.Same(t, derived, again)
}

func pipelineRaw(s *model.Schema) model.RawSchema {
	raw := model.RawSchema{}
	for _, t := range s.Tables {
		rt := model.RawTable{Name: t.Name}
		for _, c := range t.Columns {
			rt.Columns = append(rt.Columns, model.RawColumn{Name: c.Name, Type: c.Type, Constraints: c.Constraints})
		}
		raw.Tables = append(raw.Tables, rt)
	}
	return raw
}
