package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/obari/ledger/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	store     *Store
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(store *Store) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("obari-store-watcher"),
		store:      store,
		events:     make(chan core.Event, 16),
	}
}

// Watch reports snapshot files landing in the stage directory. The worker
// runs only while ctx is open; the returned channel is closed on shutdown.
// At startup the documents already present are replayed once, so a consumer
// warming an index starts from a complete picture.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	w := newWatchWorker(s)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w.events, nil
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	// The directory must exist before fsnotify can watch it.
	if err := os.MkdirAll(w.store.dir, 0755); err != nil {
		return &core.StorageError{Op: "mkdir", Path: w.store.dir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.store.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.store.dir, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)
	w.store.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.replayExisting(runCtx)

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// replayExisting emits one event per document already in the store, tracked
// as its own goroutine so a slow consumer cannot stall startup.
func (w *watchWorker) replayExisting(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		snaps, _, err := w.store.ListAll(ctx)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			name, err := FileName(w.store.stage, snap.DealID, snap.Hash, snap.ParentHash)
			if err != nil {
				continue
			}
			w.enqueue(ctx, name)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		if w.store.logger != nil {
			w.store.logger.Error("replay of existing snapshots failed", "stage", w.store.stage, "error", err)
		}
	}))
}

func (w *watchWorker) run(ctx context.Context) error {
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()

	err := w.loop(ctx)

	// Drain in-flight debounce timers before closing the channel so no
	// late fire sends on a closed channel.
	w.debouncer.stopAndWait(5 * time.Second)
	close(w.events)

	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			if w.store.logger != nil {
				w.store.logger.Error("fsnotify error", "stage", w.store.stage, "error", wErr)
			}
		}
	}
}

func (w *watchWorker) handleEvent(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, TempFilePrefix) || !stageMatch(w.store.stage, name) {
		return
	}
	// Atomic writes land as a rename; direct writes as create+write.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	if w.store.logger != nil {
		w.store.logger.Debug("snapshot event received", "stage", w.store.stage, "name", name)
	}
	w.enqueue(ctx, name)
}

func (w *watchWorker) enqueue(ctx context.Context, name string) {
	w.debouncer.add(name, func() {
		e := core.Event{
			Type:      core.EventSnapshot,
			Stage:     w.store.stage,
			Path:      name,
			Timestamp: time.Now().Unix(),
		}
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

var _ core.Watchable = (*Store)(nil)
