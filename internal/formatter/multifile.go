package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemagraph/internal/pipeline"
)

// MultiFileFormatter writes an overview plus one file per table into a directory.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format implements Formatter.
func (f *MultiFileFormatter) Format(r *pipeline.Result) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := fileNames(r.Schema.Names())
	if err := f.writeFile(overviewFile, func(w io.Writer) { f.writeOverview(w, r, files) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, v := range views(r) {
		if err := f.writeFile(files[v.table.Name], func(w io.Writer) { f.writeTable(w, r, v) }); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", v.table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(base string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, base+f.extension()))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, r *pipeline.Result, files map[string]string) {
	vs := views(r)
	sort.Slice(vs, func(i, j int) bool { return vs[i].table.Name < vs[j].table.Name })

	if f.markdown() {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "%s.\n\n", header(r))
		_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.extension())
		_, _ = fmt.Fprintf(w, "## Tables\n\n")
		for _, v := range vs {
			_, _ = fmt.Fprintf(w, "- **%s** (%s)", v.table.Name, v.node.Classification)
			if refs := targets(outgoing(r, v.table.Name)); len(refs) > 0 {
				_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(refs, ", "))
			}
			if name := files[v.table.Name]; name != v.table.Name {
				_, _ = fmt.Fprintf(w, " (file: `%s%s`)", name, f.extension())
			}
			_, _ = fmt.Fprintln(w)
		}
		if !r.Gaps.Empty() {
			_, _ = fmt.Fprintln(w)
			writeGapsMarkdown(w, r)
		}
		return
	}

	_, _ = fmt.Fprintln(w, "SCHEMA OVERVIEW")
	_, _ = fmt.Fprintln(w, strings.ToUpper(header(r)))
	_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.extension())
	for _, v := range vs {
		_, _ = fmt.Fprintf(w, "%s [%s]", v.table.Name, v.node.Classification)
		if refs := targets(outgoing(r, v.table.Name)); len(refs) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(refs, ","))
		}
		if name := files[v.table.Name]; name != v.table.Name {
			_, _ = fmt.Fprintf(w, " (file: %s%s)", name, f.extension())
		}
		_, _ = fmt.Fprintln(w)
	}
	writeGapsText(w, r)
}

func (f *MultiFileFormatter) writeTable(w io.Writer, r *pipeline.Result, v tableView) {
	if f.markdown() {
		NewMarkdownFormatter(w).formatTable(r, v, true)
		return
	}

	NewTextFormatter(w).formatTable(r, v)
	if in := incoming(r, v.table.Name); len(in) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  REFERENCED BY:")
		for _, e := range in {
			_, _ = fmt.Fprintf(w, "    ← %s.%s (%s, %s)\n", e.SourceTable, e.SourceColumn, cardinality(r, e), e.Rule)
		}
	}
}

func (f *MultiFileFormatter) markdown() bool {
	return f.OutputFormat == FormatMarkdown || f.OutputFormat == "md"
}

func (f *MultiFileFormatter) extension() string {
	if f.markdown() {
		return ".md"
	}
	return ".txt"
}

const overviewFile = "_overview"

// fileName keeps a table name from escaping the output directory.
func fileName(table string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(table)
}

// fileNames assigns each table a file name that is unique ignoring case and
// never clashes with the overview. Later tables get a numeric suffix.
func fileNames(tables []string) map[string]string {
	used := map[string]bool{overviewFile: true}
	out := make(map[string]string, len(tables))
	for _, t := range tables {
		base := fileName(t)
		name := base
		for i := 2; used[strings.ToLower(name)]; i++ {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		used[strings.ToLower(name)] = true
		out[t] = name
	}
	return out
}
