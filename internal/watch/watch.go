// Package watch re-runs the pipeline whenever a schema file changes.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tordrt/schemagraph/internal/memo"
	"github.com/tordrt/schemagraph/internal/model"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Loader reads a schema file into a variant set.
type Loader func(path string) (model.SchemaSet, error)

// Callback receives each new result, or the error that prevented one.
type Callback func(r *pipeline.Result, err error)

// Watcher watches one schema file.
type Watcher struct {
	path     string
	variant  string
	cache    *memo.Cache
	load     Loader
	onChange Callback
	logger   *slog.Logger

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// New creates a watcher for path. A nil logger discards output.
func New(path, variant string, cache *memo.Cache, load Loader, onChange Callback, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cache == nil {
		cache = memo.New(0, nil)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		variant:  variant,
		cache:    cache,
		load:     load,
		onChange: onChange,
		logger:   logger,
		Debounce: DefaultDebounce,
	}
}

// Run renders the file once, then again after every change, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching schema file", "path", w.path, "variant", w.variant)

	w.reload()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("schema file changed", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	start := time.Now()

	set, err := w.load(w.path)
	if err != nil {
		w.logger.Error("failed to load schema", "path", w.path, "error", err)
		w.onChange(nil, err)
		return
	}

	r, err := w.cache.Run(set, w.variant)
	if err != nil {
		w.logger.Error("failed to build graph", "error", err)
		w.onChange(nil, err)
		return
	}

	w.logger.Debug("graph rebuilt",
		"tables", len(r.Graph.Nodes),
		"edges", len(r.Graph.Edges),
		"duration", time.Since(start))
	w.onChange(r, nil)
}
