package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("variant", DefaultVariant, "")
	fs.String("format", DefaultFormat, "")
	fs.String("file", "", "")
	fs.String("db-url", "", "")
	fs.String("output-dir", "", "")
	fs.StringSlice("tables", nil, "")
	fs.Int("summary-columns", 10, "")
	fs.Float64("layout-min-radius", 250, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "warehouse", cfg.Variant)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 10, cfg.SummaryColumns)
	assert.Equal(t, LayoutConfig{CenterX: 600, CenterY: 400, MinRadius: 250, PerTableSpacing: 30, InnerRatio: 0.4}, cfg.Layout)
	assert.Empty(t, cfg.FileUsed)
	assert.Equal(t, 0, cfg.Sources())

	opts := cfg.PipelineOptions()
	assert.Equal(t, 600.0, opts.Layout.Center.X)
	assert.Equal(t, 10, opts.SummaryColumns)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemagraph.yaml"), []byte(`
variant: original
format: markdown
summary_columns: 5
layout:
  min_radius: 300
  inner_ratio: 0.5
exclude: [audit_log]
`), 0o644))

	t.Setenv("SCHEMAGRAPH_FORMAT", "json")
	t.Setenv("SCHEMAGRAPH_LAYOUT_CENTER_X", "100")
	t.Setenv("SCHEMAGRAPH_TABLES", "users, orders")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--variant", "ai_enhanced", "--layout-min-radius", "400"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "schemagraph.yaml", cfg.FileUsed)
	assert.Equal(t, "ai_enhanced", cfg.Variant, "flag beats file")
	assert.Equal(t, "json", cfg.Format, "env beats file")
	assert.Equal(t, 5, cfg.SummaryColumns, "file beats defaults")
	assert.Equal(t, 400.0, cfg.Layout.MinRadius)
	assert.Equal(t, 0.5, cfg.Layout.InnerRatio)
	assert.Equal(t, 100.0, cfg.Layout.CenterX)
	assert.Equal(t, 400.0, cfg.Layout.CenterY)
	assert.Equal(t, []string{"users", "orders"}, cfg.Tables)
	assert.Equal(t, []string{"audit_log"}, cfg.Exclude)
}

func TestLoadUnchangedFlagsKeepLowerLayers(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCHEMAGRAPH_VARIANT", "original")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--tables", "a,b"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "original", cfg.Variant)
	assert.Equal(t, []string{"a", "b"}, cfg.Tables)
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("file: schema.json\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.FileUsed)
	assert.Equal(t, "schema.json", cfg.File)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Variant:        "warehouse",
			Format:         "text",
			SummaryColumns: 10,
			Layout:         LayoutConfig{MinRadius: 250, PerTableSpacing: 30, InnerRatio: 0.4},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty variant", mutate: func(c *Config) { c.Variant = "" }, errSubstr: "variant"},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, errSubstr: "invalid format"},
		{name: "zero summary", mutate: func(c *Config) { c.SummaryColumns = 0 }, errSubstr: "summary_columns"},
		{name: "zero radius", mutate: func(c *Config) { c.Layout.MinRadius = 0 }, errSubstr: "radius"},
		{name: "zero spacing", mutate: func(c *Config) { c.Layout.PerTableSpacing = 0 }, errSubstr: "radius"},
		{name: "ratio too big", mutate: func(c *Config) { c.Layout.InnerRatio = 1 }, errSubstr: "inner_ratio"},
		{name: "negative split", mutate: func(c *Config) { c.SplitThreshold = -1 }, errSubstr: "split_threshold"},
		{name: "derive needs warehouse", mutate: func(c *Config) { c.DeriveWarehouse = true; c.Variant = "original" }, errSubstr: "derive_warehouse"},
		{name: "derive warehouse", mutate: func(c *Config) { c.DeriveWarehouse = true }},
		{name: "two sources", mutate: func(c *Config) { c.File = "a.json"; c.SQLite = "b.db" }, errSubstr: "only one of"},
		{name: "two outputs", mutate: func(c *Config) { c.Output = "a"; c.OutputDir = "b" }, errSubstr: "cannot use both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestSourceVariant(t *testing.T) {
	c := Config{Variant: "warehouse"}
	assert.Equal(t, "warehouse", c.SourceVariant())

	c.DeriveWarehouse = true
	assert.Equal(t, "original", c.SourceVariant())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SG_TEST_PASSWORD", "s3cret")
	assert.Equal(t, "postgres://u:s3cret@h/db", expandEnvVars("postgres://u:${SG_TEST_PASSWORD}@h/db"))
	assert.Equal(t, "${SG_TEST_UNSET}", expandEnvVars("${SG_TEST_UNSET}"))
}

func TestKeyMapping(t *testing.T) {
	assert.Equal(t, "output_dir", flagKey("output-dir"))
	assert.Equal(t, "layout.per_table_spacing", flagKey("layout-per-table-spacing"))
	assert.Equal(t, "db_url", envKey("SCHEMAGRAPH_DB_URL"))
	assert.Equal(t, "layout.center_y", envKey("SCHEMAGRAPH_LAYOUT_CENTER_Y"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(&buf, false))

	GetLogger(ctx).Debug("hidden")
	GetLogger(ctx).Info("shown", "tables", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "tables=3")

	assert.NotNil(t, GetLogger(context.Background()))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
