package schemagraph

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopJSON = `{
  "customers": {"columns": [{"name": "customer_id", "type": "INT", "constraints": ["PRIMARY KEY"]}]},
  "orders": {"columns": [
    {"name": "order_id", "type": "INT", "constraints": ["PRIMARY KEY"]},
    {"name": "customer_id", "type": "INT", "constraints": ["FOREIGN KEY"]}
  ]}
}`

func TestBuild(t *testing.T) {
	set, err := ParseSchemaSet([]byte(shopJSON), VariantWarehouse)
	require.NoError(t, err)

	g := Build(set, VariantWarehouse)
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "orders", g.Edges[0].Source)
	assert.Equal(t, "customers", g.Edges[0].Target)
	assert.Equal(t, "customer_id", g.Edges[0].Label)

	empty := Build(set, VariantAIEnhanced)
	assert.Empty(t, empty.Nodes)
	assert.Empty(t, empty.Edges)
}

func TestBuildDerivesWarehouseFromOriginal(t *testing.T) {
	set, err := ParseSchemaSet([]byte(`{"original_schema": {
  "customers": {"columns": [{"name": "id", "type": "INT"}]},
  "products": {"columns": [{"name": "id", "type": "INT"}]},
  "order_lines": {"columns": [
    {"name": "customer", "type": "customers(id)"},
    {"name": "product", "type": "products(id)"}
  ]}
}}`), VariantWarehouse)
	require.NoError(t, err)
	require.NotContains(t, set, VariantWarehouse)

	g := Build(set, VariantWarehouse)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "order_lines", g.Nodes[0].ID)
	assert.Equal(t, "fact", string(g.Nodes[0].Classification))

	raw := GenerateWarehouse(set[VariantOriginal])
	require.Len(t, raw.Tables, 3)
	assert.Equal(t, "order_lines", raw.Tables[0].Name)
	assert.Equal(t, "updated_at", raw.Tables[2].Columns[2].Name)
}

func TestBuildIsDeterministic(t *testing.T) {
	set, err := ParseSchemaSet([]byte(shopJSON), VariantWarehouse)
	require.NoError(t, err)

	first, err := json.Marshal(Build(set, VariantWarehouse))
	require.NoError(t, err)
	second, err := json.Marshal(Build(set, VariantWarehouse))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseSchemaSetErrors(t *testing.T) {
	_, err := ParseSchemaSet([]byte(`["a", "b"]`), VariantWarehouse)
	assert.ErrorIs(t, err, ErrNotMapping)
}

func TestLoadSchemaFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"shop.json": shopJSON,
		"shop.yaml": "customers:\n  columns:\n    - name: customer_id\n      type: INT\norders:\n  columns:\n    - name: customer_id\n      type: INT\n",
		"shop.SQL":  "CREATE TABLE customers (customer_id INT PRIMARY KEY);\nCREATE TABLE orders (order_id INT, customer_id INT REFERENCES customers(customer_id));",
		"empty.sql": "-- nothing here\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	for _, name := range []string{"shop.json", "shop.yaml", "shop.SQL"} {
		t.Run(name, func(t *testing.T) {
			set, err := LoadSchemaFile(filepath.Join(dir, name), VariantWarehouse)
			require.NoError(t, err)

			g := Build(set, VariantWarehouse)
			require.Len(t, g.Nodes, 2)
			require.Len(t, g.Edges, 1)
			assert.Equal(t, "orders.customer_id->customers", g.Edges[0].ID)
		})
	}

	_, err := LoadSchemaFile(filepath.Join(dir, "empty.sql"), VariantWarehouse)
	assert.Error(t, err)

	_, err = LoadSchemaFile(filepath.Join(dir, "missing.json"), VariantWarehouse)
	assert.ErrorContains(t, err, "failed to read schema file")
}

func TestAnalyzeWithOptions(t *testing.T) {
	set, err := ParseSchemaSet([]byte(shopJSON), VariantOriginal)
	require.NoError(t, err)

	opts := DefaultPipelineOptions()
	opts.Layout.Center.X = 0
	opts.Layout.Center.Y = 0

	r := Analyze(set, VariantOriginal, &opts)
	assert.Empty(t, r.Facts())
	assert.Equal(t, []string{"customers", "orders"}, r.Dimensions())
	assert.InDelta(t, -250, r.Graph.Nodes[0].Position.Y, 1e-9)
}

func TestCache(t *testing.T) {
	set, err := ParseSchemaSet([]byte(shopJSON), VariantWarehouse)
	require.NoError(t, err)

	c := NewCache(2, nil)
	a, err := c.Run(set, VariantWarehouse)
	require.NoError(t, err)
	b, err := c.Run(set, VariantWarehouse)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFormatResult(t *testing.T) {
	set, err := ParseSchemaSet([]byte(shopJSON), VariantWarehouse)
	require.NoError(t, err)
	r := Analyze(set, VariantWarehouse, nil)

	var buf bytes.Buffer
	require.NoError(t, FormatResult(r, &OutputOptions{Writer: &buf, Format: "json"}))
	var g Graph
	require.NoError(t, json.Unmarshal(buf.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)

	dir := filepath.Join(t.TempDir(), "docs")
	require.NoError(t, FormatResult(r, &OutputOptions{OutputDir: dir, Format: "markdown"}))
	_, err = os.Stat(filepath.Join(dir, "_overview.md"))
	assert.NoError(t, err)

	assert.Error(t, FormatResult(r, &OutputOptions{OutputDir: dir, Format: "json"}))
	assert.Error(t, FormatResult(r, &OutputOptions{Writer: &buf, Format: "xml"}))
}

func TestExtractSchemaInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty URL", url: ""},
		{name: "invalid URL scheme", url: "invalid://test.db"},
		{name: "mysql without database", url: "mysql://user@tcp(localhost:3306)/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractSchema(context.Background(), tt.url, nil)
			assert.Error(t, err)
		})
	}
}
