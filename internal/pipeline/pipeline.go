// Package pipeline runs the schema → graph stages in order:
// normalize, classify, infer relationships, lay out, assemble.
//
// Every stage is a pure function of its inputs; Run holds no state and may be
// called again whenever the schema or the selected variant changes.
package pipeline

import (
	"github.com/tordrt/schemagraph/internal/classify"
	"github.com/tordrt/schemagraph/internal/domain"
	"github.com/tordrt/schemagraph/internal/graph"
	"github.com/tordrt/schemagraph/internal/infer"
	"github.com/tordrt/schemagraph/internal/layout"
	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/warehouse"
)

// Options tunes the presentation stages. Passing nil uses DefaultOptions.
type Options struct {
	Layout         layout.Config
	SummaryColumns int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Layout:         layout.DefaultConfig(),
		SummaryColumns: graph.DefaultSummaryColumns,
	}
}

// Result carries the graph along with the intermediate stage outputs that
// formatters need. Gaps is nil for the original variant and for domains
// without a reference warehouse. Derived is set when the warehouse was
// generated from the original schema.
type Result struct {
	Variant string
	Domain  string
	Derived bool
	Schema  *model.Schema
	Classes map[string]classify.Class
	Edges   []infer.Edge
	Graph   *graph.Graph
	Gaps    *warehouse.Gaps
}

// Facts returns fact table names in schema order.
func (r *Result) Facts() []string {
	return r.namesOf(classify.Fact)
}

// Dimensions returns dimension table names in schema order.
func (r *Result) Dimensions() []string {
	return r.namesOf(classify.Dimension)
}

func (r *Result) namesOf(class classify.Class) []string {
	names := []string{}
	for _, name := range r.Schema.Names() {
		if r.Classes[name] == class {
			names = append(names, name)
		}
	}
	return names
}

// Select picks the raw schema stored under variant. A set holding an original
// schema but no warehouse derives the warehouse from it, and derived reports
// that. An unknown variant yields an empty schema.
func Select(set model.SchemaSet, variant string) (raw model.RawSchema, derived bool) {
	if raw, ok := set[variant]; ok {
		return raw, false
	}
	if variant == model.VariantWarehouse {
		if orig, ok := set[model.VariantOriginal]; ok {
			return warehouse.Generate(orig).Raw(), true
		}
	}
	return model.RawSchema{}, false
}

// Run processes the named variant of a schema set. An unknown variant yields
// an empty result.
func Run(set model.SchemaSet, variant string, opts *Options) *Result {
	raw, derived := Select(set, variant)
	r := RunSchema(raw, variant, opts)
	r.Derived = derived
	return r
}

// RunSchema processes a single raw schema as the given variant.
func RunSchema(raw model.RawSchema, variant string, opts *Options) *Result {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	s := model.Normalize(raw)
	classes := classify.Classify(s, variant)
	edges := infer.Infer(s)

	r := &Result{
		Variant: variant,
		Domain:  domain.Detect(s),
		Schema:  s,
		Classes: classes,
		Edges:   edges,
	}
	positions := layout.Compute(r.Facts(), r.Dimensions(), o.Layout)
	r.Graph = graph.Build(s, classes, edges, positions, o.SummaryColumns)
	if variant != model.VariantOriginal {
		r.Gaps = warehouse.Compare(s, r.Domain)
	}

	return r
}
