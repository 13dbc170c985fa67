// Package watcher keeps the knowledge base in step with a directory:
// files created or written there are ingested, and files removed from it
// have their documents deleted.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/knowledge-flow/internal/core/domain"
	"github.com/custodia-labs/knowledge-flow/internal/core/ports/driving"
	"github.com/custodia-labs/knowledge-flow/internal/core/services"
	"github.com/custodia-labs/knowledge-flow/internal/logger"
)

// DefaultDebounce is how long the watcher waits for a burst of events
// on the same files to settle before acting on them.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType is what happened to a watched file.
type ChangeType string

// Change types.
const (
	ChangeUpsert ChangeType = "upsert"
	ChangeDelete ChangeType = "delete"
)

// Change is one file that needs ingesting or deleting.
type Change struct {
	Type ChangeType
	Path string
}

// Watcher ingests files as they appear in a directory.
type Watcher struct {
	dir        string
	stagingDir string
	agent      string
	debounce   time.Duration
	ingestion  driving.IngestionService
	metadata   driving.MetadataService
	observe    func(domain.ProgressEvent)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithAgent sets the agent name documents are ingested under.
func WithAgent(agent string) Option {
	return func(w *Watcher) {
		w.agent = agent
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithObserver receives every ingestion progress event.
func WithObserver(fn func(domain.ProgressEvent)) Option {
	return func(w *Watcher) {
		w.observe = fn
	}
}

// New creates a watcher for dir. Uploads are staged under stagingDir.
// metadata may be nil, in which case removed files are ignored.
func New(
	dir, stagingDir string,
	ingestion driving.IngestionService,
	metadata driving.MetadataService,
	opts ...Option,
) (*Watcher, error) {
	if ingestion == nil {
		return nil, errors.New("watcher: ingestion service is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: watch dir: %w", domain.ErrInvalidRequest, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidRequest, dir)
	}

	w := &Watcher{
		dir:        dir,
		stagingDir: stagingDir,
		agent:      domain.UnknownAgent,
		debounce:   DefaultDebounce,
		ingestion:  ingestion,
		metadata:   metadata,
		observe:    func(domain.ProgressEvent) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Scan ingests every visible regular file already in the directory.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && !isHidden(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	w.ingest(ctx, paths)
	return nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("watching %s", w.dir)

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			logger.Debug("%s %s", change.Type, change.Path)
			pending[change.Path] = change.Type
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			w.apply(ctx, pending)
			pending = make(map[string]ChangeType)
		}
	}
}

// handleFsEvent maps a filesystem event to the change it requires, or nil
// when the event is irrelevant: hidden files, directories and chmod-only
// events.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		return &Change{Type: ChangeUpsert, Path: event.Name}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDelete, Path: event.Name}
	default:
		return nil
	}
}

// apply processes a settled batch of changes.
func (w *Watcher) apply(ctx context.Context, batch map[string]ChangeType) {
	var upserts, deletes []string
	for path, t := range batch {
		if t == ChangeDelete {
			deletes = append(deletes, path)
		} else {
			upserts = append(upserts, path)
		}
	}
	sort.Strings(upserts)
	sort.Strings(deletes)

	for _, path := range deletes {
		w.remove(ctx, path)
	}
	w.ingest(ctx, upserts)
}

func (w *Watcher) remove(ctx context.Context, path string) {
	if w.metadata == nil {
		return
	}
	uid := domain.DeriveDocumentUID(w.agent, filepath.Base(path))
	err := w.metadata.DeleteDocument(ctx, uid)
	switch {
	case err == nil:
		logger.Info("removed %s", filepath.Base(path))
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("no document for %s", filepath.Base(path))
	default:
		logger.Warn("remove %s: %v", filepath.Base(path), err)
	}
}

func (w *Watcher) ingest(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}

	files := make([]domain.IngestFile, 0, len(paths))
	for _, path := range paths {
		file, err := stage(w.stagingDir, path)
		if err != nil {
			logger.Warn("stage %s: %v", filepath.Base(path), err)
			continue
		}
		files = append(files, file)
	}
	defer services.CleanupStaged(files)
	if len(files) == 0 {
		return
	}

	seed := domain.Metadata{domain.KeyAgentName: w.agent}
	var agg domain.ProgressAggregator
	for event := range w.ingestion.Ingest(ctx, files, seed) {
		agg.Observe(event)
		w.observe(event)
	}
	logger.Info("ingested %d file(s), %d failed", agg.Succeeded(), agg.Failed())
}

func stage(root, path string) (domain.IngestFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.IngestFile{}, err
	}
	defer f.Close()
	return services.StageFile(root, filepath.Base(path), f)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
