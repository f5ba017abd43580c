// Package config loads schemagraph settings from defaults, a schemagraph.yaml
// file, SCHEMAGRAPH_* environment variables and command-line flags.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tordrt/schemagraph/internal/graph"
	"github.com/tordrt/schemagraph/internal/layout"
	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SCHEMAGRAPH_"

// Defaults.
const (
	DefaultVariant = model.VariantWarehouse
	DefaultFormat  = "text"
)

var configFileNames = []string{"schemagraph.yaml", "schemagraph.yml"}

var validFormats = []string{"text", "table", "markdown", "md", "json"}

// Config is the resolved configuration.
type Config struct {
	Variant        string       `koanf:"variant"`
	Format         string       `koanf:"format"`
	Output         string       `koanf:"output"`
	OutputDir      string       `koanf:"output_dir"`
	SplitThreshold int          `koanf:"split_threshold"`
	File           string       `koanf:"file"`
	DBURL          string       `koanf:"db_url"`
	MySQLURL       string       `koanf:"mysql_url"`
	SQLite         string       `koanf:"sqlite"`
	Tables         []string     `koanf:"tables"`
	Exclude        []string     `koanf:"exclude"`
	Schema         string       `koanf:"schema"`
	SummaryColumns int          `koanf:"summary_columns"`
	Layout         LayoutConfig `koanf:"layout"`
	Verbose        bool         `koanf:"verbose"`

	// DeriveWarehouse loads a single schema as the original variant and
	// renders the warehouse generated from it.
	DeriveWarehouse bool `koanf:"derive_warehouse"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// LayoutConfig holds the ring layout parameters.
type LayoutConfig struct {
	CenterX         float64 `koanf:"center_x"`
	CenterY         float64 `koanf:"center_y"`
	MinRadius       float64 `koanf:"min_radius"`
	PerTableSpacing float64 `koanf:"per_table_spacing"`
	InnerRatio      float64 `koanf:"inner_ratio"`
}

func defaults() map[string]any {
	l := layout.DefaultConfig()
	return map[string]any{
		"variant":                  DefaultVariant,
		"format":                   DefaultFormat,
		"summary_columns":          graph.DefaultSummaryColumns,
		"split_threshold":          0,
		"layout.center_x":          l.Center.X,
		"layout.center_y":          l.Center.Y,
		"layout.min_radius":        l.MinRadius,
		"layout.per_table_spacing": l.PerTableSpacing,
		"layout.inner_ratio":       l.InnerRatio,
		"verbose":                  false,
		"derive_warehouse":         false,
	}
}

// findConfigFile returns the explicit path, or the first default config file
// present in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load resolves the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SCHEMAGRAPH_LAYOUT_MIN_RADIUS -> layout.min_radius
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used
	cfg.Tables = splitList(cfg.Tables)
	cfg.Exclude = splitList(cfg.Exclude)
	cfg.DBURL = expandEnvVars(cfg.DBURL)
	cfg.MySQLURL = expandEnvVars(cfg.MySQLURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "layout_"); ok {
		return "layout." + rest
	}
	return key
}

// flagKey maps kebab-case flag names to config keys; layout-* flags land
// under the layout section.
func flagKey(name string) string {
	key := strings.ReplaceAll(name, "-", "_")
	if rest, ok := strings.CutPrefix(key, "layout_"); ok {
		return "layout." + rest
	}
	return key
}

// splitList flattens comma-separated entries, as env vars deliver lists.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references, leaving unknown ones in place.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// Validate checks value ranges and that at most one schema source is set.
func (c *Config) Validate() error {
	if c.Variant == "" {
		return fmt.Errorf("variant must not be empty")
	}
	if !slices.Contains(validFormats, c.Format) {
		return fmt.Errorf("invalid format: %s (must be one of text, table, markdown, json)", c.Format)
	}
	if c.SummaryColumns <= 0 {
		return fmt.Errorf("summary_columns must be positive, got %d", c.SummaryColumns)
	}
	if c.Layout.MinRadius <= 0 || c.Layout.PerTableSpacing <= 0 {
		return fmt.Errorf("layout radius settings must be positive")
	}
	if c.Layout.InnerRatio <= 0 || c.Layout.InnerRatio >= 1 {
		return fmt.Errorf("layout.inner_ratio must be between 0 and 1, got %g", c.Layout.InnerRatio)
	}
	if c.SplitThreshold < 0 {
		return fmt.Errorf("split_threshold must not be negative, got %d", c.SplitThreshold)
	}
	if c.DeriveWarehouse && c.Variant != model.VariantWarehouse {
		return fmt.Errorf("derive_warehouse requires variant %s, got %s", model.VariantWarehouse, c.Variant)
	}
	if c.Sources() > 1 {
		return fmt.Errorf("only one of file, db_url, mysql_url, or sqlite can be specified")
	}
	if c.Output != "" && c.OutputDir != "" {
		return fmt.Errorf("cannot use both output and output_dir")
	}
	return nil
}

// SourceVariant is the variant a single-schema source is registered under.
func (c *Config) SourceVariant() string {
	if c.DeriveWarehouse {
		return model.VariantOriginal
	}
	return c.Variant
}

// Sources counts the schema sources that are set.
func (c *Config) Sources() int {
	n := 0
	for _, s := range []string{c.File, c.DBURL, c.MySQLURL, c.SQLite} {
		if s != "" {
			n++
		}
	}
	return n
}

// PipelineOptions converts the presentation settings.
func (c *Config) PipelineOptions() *pipeline.Options {
	return &pipeline.Options{
		Layout: layout.Config{
			Center:          layout.Point{X: c.Layout.CenterX, Y: c.Layout.CenterY},
			MinRadius:       c.Layout.MinRadius,
			PerTableSpacing: c.Layout.PerTableSpacing,
			InnerRatio:      c.Layout.InnerRatio,
		},
		SummaryColumns: c.SummaryColumns,
	}
}

type loggerKey struct{}

// NewLogger builds the text logger the CLI writes to stderr.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetLogger retrieves the logger from the context, or a discard logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
