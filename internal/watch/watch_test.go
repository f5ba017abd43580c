package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

func loadJSON(path string) (model.SchemaSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := model.Decode(data)
	if err != nil {
		return nil, err
	}
	return doc.Set(model.VariantWarehouse), nil
}

type recorder struct {
	mu      sync.Mutex
	results []*pipeline.Result
	errs    []error
}

func (r *recorder) record(res *pipeline.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.results = append(r.results, res)
}

func (r *recorder) last() (*pipeline.Result, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil, 0, len(r.errs)
	}
	return r.results[len(r.results)-1], len(r.results), len(r.errs)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"customers": {}}`), 0o644))

	rec := &recorder{}
	w := New(path, model.VariantWarehouse, nil, loadJSON, rec.record, nil)
	w.Debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		r, _, _ := rec.last()
		return r != nil && len(r.Graph.Nodes) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{
  "customers": {},
  "orders": {"columns": [{"name": "customer_id", "type": "INT"}]}
}`), 0o644))

	require.Eventually(t, func() bool {
		r, _, _ := rec.last()
		return r != nil && len(r.Graph.Nodes) == 2 && len(r.Graph.Edges) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[not a mapping]`), 0o644))
	require.Eventually(t, func() bool {
		_, _, errs := rec.last()
		return errs > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": {}}`), 0o644))

	rec := &recorder{}
	w := New(path, model.VariantWarehouse, nil, loadJSON, rec.record, nil)
	w.Debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, n, _ := rec.last()
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	time.Sleep(100 * time.Millisecond)

	_, n, _ := rec.last()
	assert.Equal(t, 1, n)
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope", "schema.json"), model.VariantWarehouse, nil, loadJSON, func(*pipeline.Result, error) {}, nil)
	assert.Error(t, w.Run(context.Background()))
}
