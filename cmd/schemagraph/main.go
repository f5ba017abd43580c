package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemagraph"
	"github.com/tordrt/schemagraph/internal/config"
	"github.com/tordrt/schemagraph/internal/memo"
	"github.com/tordrt/schemagraph/internal/watch"
)

type configKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schemagraph",
		Short: "Turn a database schema into a graph of tables and relationships",
		Long: `Schemagraph reads a schema from a JSON, YAML or SQL file, or from a live PostgreSQL,
MySQL or SQLite database, classifies every table as a fact or dimension table, infers
the relationships between them and lays them out on two concentric rings.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              run,
	}

	defaults := schemagraph.DefaultPipelineOptions()
	fs := root.PersistentFlags()
	fs.String("config", "", "Config file (default: ./schemagraph.yaml if present)")
	fs.String("file", "", "Schema file: .json, .yaml or .sql")
	fs.String("db-url", "", "PostgreSQL connection string")
	fs.String("mysql-url", "", "MySQL connection string")
	fs.String("sqlite", "", "SQLite database file path")
	fs.String("variant", config.DefaultVariant, "Schema variant: original, warehouse or ai_enhanced")
	fs.Bool("derive-warehouse", false, "Treat a single schema as the original and render the warehouse generated from it")
	fs.StringP("format", "f", config.DefaultFormat, "Output format: text, table, markdown or json")
	fs.StringP("output", "o", "", "Output file (default: stdout)")
	fs.StringP("output-dir", "d", "", "Output directory for multi-file output")
	fs.Int("split-threshold", 0, "Split into multiple files when table count exceeds this (requires --output-dir)")
	fs.StringSliceP("tables", "t", nil, "Specific tables (comma-separated, optional)")
	fs.StringSlice("exclude", nil, "Tables to leave out (comma-separated)")
	fs.StringP("schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	fs.Int("summary-columns", defaults.SummaryColumns, "Columns listed in a node summary")
	fs.Float64("layout-center-x", defaults.Layout.Center.X, "Layout center X")
	fs.Float64("layout-center-y", defaults.Layout.Center.Y, "Layout center Y")
	fs.Float64("layout-min-radius", defaults.Layout.MinRadius, "Minimum outer ring radius")
	fs.Float64("layout-per-table-spacing", defaults.Layout.PerTableSpacing, "Outer ring radius per table")
	fs.Float64("layout-inner-ratio", defaults.Layout.InnerRatio, "Inner ring radius as a fraction of the outer")
	fs.BoolP("verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newWatchCmd())
	return root
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-render the graph whenever the schema file changes",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if cfg.FileUsed != "" {
		logger.Debug("using config file", "path", cfg.FileUsed)
	}
	ctx = config.WithLogger(ctx, logger)
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	logger := config.GetLogger(ctx)

	if cfg.Sources() == 0 {
		return fmt.Errorf("one of --file, --db-url, --mysql-url, or --sqlite must be specified")
	}

	set, err := loadSchemaSet(ctx, cfg)
	if err != nil {
		return err
	}

	r := schemagraph.Analyze(set, cfg.Variant, cfg.PipelineOptions())
	logger.Info("graph built",
		"variant", r.Variant,
		"derived", r.Derived,
		"domain", r.Domain,
		"tables", len(r.Graph.Nodes),
		"edges", len(r.Graph.Edges))

	return render(cmd, cfg, r)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg := configFrom(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	if cfg.File == "" {
		return fmt.Errorf("watch requires --file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := schemagraph.NewCache(memo.DefaultSize, cfg.PipelineOptions())
	load := func(path string) (schemagraph.SchemaSet, error) {
		set, err := schemagraph.LoadSchemaFile(path, cfg.SourceVariant())
		if err != nil {
			return nil, err
		}
		return selectVariant(set, cfg), nil
	}
	onChange := func(r *schemagraph.Result, err error) {
		if err != nil {
			return
		}
		if err := render(cmd, cfg, r); err != nil {
			logger.Error("failed to render graph", "error", err)
		}
	}

	return watch.New(cfg.File, cfg.Variant, cache, load, onChange, logger).Run(ctx)
}

// loadSchemaSet reads the configured source. Table selection applies to every
// source; database sources filter during extraction.
func loadSchemaSet(ctx context.Context, cfg *config.Config) (schemagraph.SchemaSet, error) {
	if cfg.File != "" {
		set, err := schemagraph.LoadSchemaFile(cfg.File, cfg.SourceVariant())
		if err != nil {
			return nil, err
		}
		return selectVariant(set, cfg), nil
	}

	raw, err := schemagraph.ExtractSchema(ctx, sourceURL(cfg), &schemagraph.Options{
		Tables:        cfg.Tables,
		ExcludeTables: cfg.Exclude,
		SchemaName:    cfg.Schema,
		Logger:        config.GetLogger(ctx),
	})
	if err != nil {
		return nil, err
	}
	return schemagraph.SchemaSet{cfg.SourceVariant(): raw}, nil
}

// selectVariant applies table selection to the schema the rendered variant
// is read from, which is the original when the warehouse gets derived.
func selectVariant(set schemagraph.SchemaSet, cfg *config.Config) schemagraph.SchemaSet {
	key := cfg.Variant
	if _, ok := set[key]; !ok && key == schemagraph.VariantWarehouse {
		key = schemagraph.VariantOriginal
	}
	if raw, ok := set[key]; ok {
		set[key] = selectTables(raw, cfg.Tables, cfg.Exclude)
	}
	return set
}

// selectTables keeps the named tables (all when include is empty) minus the
// excluded ones, in their original order.
func selectTables(raw schemagraph.RawSchema, include, exclude []string) schemagraph.RawSchema {
	if len(include) == 0 && len(exclude) == 0 {
		return raw
	}
	out := schemagraph.RawSchema{Tables: raw.Tables[:0:0]}
	for _, t := range raw.Tables {
		if len(include) > 0 && !slices.Contains(include, t.Name) {
			continue
		}
		if slices.Contains(exclude, t.Name) {
			continue
		}
		out.Tables = append(out.Tables, t)
	}
	return out
}

// sourceURL turns the database flags into a connection URL.
func sourceURL(cfg *config.Config) string {
	switch {
	case cfg.SQLite != "":
		return "sqlite://" + cfg.SQLite
	case cfg.MySQLURL != "":
		if strings.HasPrefix(cfg.MySQLURL, "mysql://") {
			return cfg.MySQLURL
		}
		return "mysql://" + cfg.MySQLURL
	default:
		return cfg.DBURL
	}
}

func render(cmd *cobra.Command, cfg *config.Config, r *schemagraph.Result) error {
	shouldSplit := cfg.OutputDir != "" && (cfg.SplitThreshold == 0 || len(r.Graph.Nodes) > cfg.SplitThreshold)
	if shouldSplit {
		if err := schemagraph.FormatResult(r, &schemagraph.OutputOptions{OutputDir: cfg.OutputDir, Format: cfg.Format}); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}

	var writer io.Writer = cmd.OutOrStdout()
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				config.GetLogger(cmd.Context()).Warn("failed to close output file", "error", err)
			}
		}()
		writer = f
	}

	if err := schemagraph.FormatResult(r, &schemagraph.OutputOptions{Writer: writer, Format: cfg.Format}); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
