// Package watcher observes a store's nodes directory for changes made
// behind the running process and turns them into cache refreshes. This is
// the external-change path: a synced replica or a curious user editing
// node files directly both land here.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joeleaver/pimble/domain/core/valueobjects"
	"go.uber.org/zap"
)

// debounceWindow coalesces the burst of events one atomic write emits
// (temp create, write, rename) into a single refresh.
const debounceWindow = 200 * time.Millisecond

// StoreWatcher watches the nodes directories of open stores.
type StoreWatcher struct {
	fs      *fsnotify.Watcher
	refresh func(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID)
	logger  *zap.Logger

	mu      sync.Mutex
	dirs    map[string]valueobjects.StoreID // nodes dir -> store
	pending map[string]*time.Timer          // store/node -> debounce timer
	closed  bool

	done chan struct{}
}

// New creates a watcher delivering debounced refresh calls. The refresh
// callback runs on the watcher goroutine and must not block for long.
func New(refresh func(ctx context.Context, storeID valueobjects.StoreID, nodeID valueobjects.NodeID), logger *zap.Logger) (*StoreWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &StoreWatcher{
		fs:      fs,
		refresh: refresh,
		logger:  logger,
		dirs:    make(map[string]valueobjects.StoreID),
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// WatchStore starts watching a store's nodes directory.
func (w *StoreWatcher) WatchStore(storeID valueobjects.StoreID, storeDir string) error {
	nodesDir := filepath.Join(storeDir, "nodes")
	if err := w.fs.Add(nodesDir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[nodesDir] = storeID
	w.mu.Unlock()
	w.logger.Info("Watching store for external changes",
		zap.String("storeID", storeID.String()),
		zap.String("dir", nodesDir),
	)
	return nil
}

// UnwatchStore stops watching a store's nodes directory.
func (w *StoreWatcher) UnwatchStore(storeDir string) {
	nodesDir := filepath.Join(storeDir, "nodes")
	if err := w.fs.Remove(nodesDir); err != nil {
		w.logger.Debug("Unwatch failed", zap.String("dir", nodesDir), zap.Error(err))
	}
	w.mu.Lock()
	delete(w.dirs, nodesDir)
	w.mu.Unlock()
}

// Close stops the watcher and cancels pending refreshes.
func (w *StoreWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *StoreWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Store watcher error", zap.Error(err))
		}
	}
}

// handle maps one filesystem event to a debounced node refresh. Only the
// rename/write of a real node file counts; temp files from atomic writes
// are ignored.
func (w *StoreWatcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	if strings.Contains(name, ".tmp") {
		return
	}
	var idPart string
	switch {
	case strings.HasSuffix(name, ".json"):
		idPart = strings.TrimSuffix(name, ".json")
	case strings.HasSuffix(name, ".content"):
		idPart = strings.TrimSuffix(name, ".content")
	default:
		return
	}
	nodeID, err := valueobjects.NewNodeIDFromString(idPart)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	storeID, ok := w.dirs[filepath.Dir(event.Name)]
	if !ok {
		return
	}

	key := storeID.String() + "/" + nodeID.String()
	if timer, exists := w.pending[key]; exists {
		timer.Reset(debounceWindow)
		return
	}
	w.pending[key] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, key)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.refresh(context.Background(), storeID, nodeID)
	})
}
