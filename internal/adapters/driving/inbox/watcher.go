// Package inbox ingests remote batch files dropped into a local directory
// by an external sync agent. Each file carries one batch of events from
// another device; applying it always triggers a full projection rebuild.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arbor-labs/arbor-cli/internal/core/domain"
	"github.com/arbor-labs/arbor-cli/internal/core/ports/driving"
	"github.com/arbor-labs/arbor-cli/internal/logger"
)

const (
	batchSuffix    = ".json"
	appliedSuffix  = ".applied"
	rejectedSuffix = ".rejected"

	// Writers are expected to create files atomically (write elsewhere,
	// rename in), but debounce anyway so a slow writer's partial file is
	// not read mid-flight.
	debounce = 200 * time.Millisecond
)

// Notice reports the outcome of one processed batch file.
type Notice struct {
	File   string
	Events int
	Err    error
}

// Watcher monitors an inbox directory for remote batch files and feeds
// them into the outline service.
type Watcher struct {
	Notices <-chan Notice

	dir     string
	service driving.OutlineService
	notices chan Notice
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given inbox directory.
func NewWatcher(dir string, service driving.OutlineService) (*Watcher, error) {
	if service == nil {
		return nil, fmt.Errorf("creating inbox watcher: %w: outline service is required", domain.ErrInvalidInput)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating inbox watcher: %w", err)
	}

	ch := make(chan Notice, 16)
	return &Watcher{
		Notices: ch,
		dir:     dir,
		service: service,
		notices: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start sweeps batch files already present in the inbox, then begins
// watching for new ones. The loop runs until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating inbox directory: %w", err)
	}

	if err := w.sweep(ctx); err != nil {
		return err
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching inbox directory: %w", err)
	}

	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and waits for the loop to drain.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.notices)
}

// sweep processes batch files that arrived while no watcher was running.
func (w *Watcher) sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading inbox directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isBatchFile(entry.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isBatchFile(filepath.Base(event.Name)) {
				continue
			}
			// A file renamed into the directory arrives as Create. The
			// Rename op fires for names renamed away (our own .applied
			// marking included) and must not re-queue them.
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}

		case now, ok := <-ticker.C:
			if !ok {
				return
			}
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					delete(pending, file)
					w.process(ctx, file)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("inbox watch error: %v", err)
		}
	}
}

// process applies one batch file and renames it so it is never replayed.
// Failures are reported, not fatal; a bad file must not stall the inbox.
func (w *Watcher) process(ctx context.Context, path string) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		// Already processed, or removed by the sender.
		return
	}

	events, err := readBatchFile(path)
	if err == nil {
		err = w.service.ApplyRemote(ctx, events)
	}

	suffix := appliedSuffix
	if err != nil {
		suffix = rejectedSuffix
		logger.Warn("rejecting inbox file %s: %v", filepath.Base(path), err)
	}
	if renameErr := os.Rename(path, path+suffix); renameErr != nil && err == nil {
		err = fmt.Errorf("marking batch file processed: %w", renameErr)
	}

	select {
	case w.notices <- Notice{File: filepath.Base(path), Events: len(events), Err: err}:
	default:
		// Nobody is listening; outcomes are already logged.
	}
}

func isBatchFile(name string) bool {
	return strings.HasSuffix(name, batchSuffix) && !strings.HasPrefix(name, ".")
}

// batchFile is the on-disk shape of one remote batch.
type batchFile struct {
	BatchID string       `json:"batchId"`
	Events  []batchEvent `json:"events"`
}

type batchEvent struct {
	Sequence int64            `json:"sequence"`
	Kind     domain.EventKind `json:"kind"`
	Payload  json.RawMessage  `json:"payload"`

	// BatchID overrides the file-level batch id for this event; normally
	// left empty.
	BatchID string `json:"batchId,omitempty"`
}

func readBatchFile(path string) ([]domain.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var file batchFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decoding batch file: %w", err)
	}
	if file.BatchID == "" {
		return nil, fmt.Errorf("decoding batch file: %w: missing batchId", domain.ErrInvalidInput)
	}

	events := make([]domain.Event, 0, len(file.Events))
	for i, be := range file.Events {
		if !be.Kind.Valid() {
			return nil, fmt.Errorf("decoding batch file: event %d: %w: %q", i, domain.ErrUnknownEventKind, be.Kind)
		}
		if be.Sequence <= 0 {
			return nil, fmt.Errorf("decoding batch file: event %d: %w: missing sequence", i, domain.ErrInvalidInput)
		}
		batchID := be.BatchID
		if batchID == "" {
			batchID = file.BatchID
		}
		events = append(events, domain.Event{
			Sequence: be.Sequence,
			Kind:     be.Kind,
			Payload:  be.Payload,
			BatchID:  batchID,
		})
	}
	return events, nil
}
