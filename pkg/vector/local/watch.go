package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/metrics"
)

// Watch starts watching the vectors directory. When a namespace file is
// changed or removed by another process, the in-memory copy is dropped and
// reloaded on next touch. Writes made by this store are recognised by their
// fingerprint and ignored. The watcher stops when ctx is cancelled or the
// store is closed.
func (s *Store) Watch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.stop != nil {
		return fmt.Errorf("store is already watching %s", s.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating vectors watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching vectors dir: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stop, s.done = cancel, done

	go func() {
		defer close(done)
		defer watcher.Close()
		s.watchLoop(ctx, watcher)
	}()

	s.logger.Debug("watching vectors directory", zap.String("dir", s.dir))
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := namespaceFromFile(filepath.Base(event.Name))
			if !ok {
				continue
			}
			s.invalidateIfChanged(id)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("vectors watcher error", zap.Error(err))
		}
	}
}

// invalidateIfChanged drops the in-memory copy of a namespace when the file
// on disk no longer matches what this store last read or wrote.
func (s *Store) invalidateIfChanged(namespaceID string) {
	ns, ok := s.lookup(namespaceID)
	if !ok {
		return
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if !ns.loaded {
		return
	}

	var current fingerprint
	info, err := os.Stat(s.path(namespaceID))
	switch {
	case err == nil:
		current = fingerprintOf(info)
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.logger.Warn("stat namespace file", zap.String("namespace", namespaceID), zap.Error(err))
		return
	}

	if current.exists == ns.written.exists &&
		current.size == ns.written.size &&
		current.modTime.Equal(ns.written.modTime) {
		return
	}

	ns.loaded = false
	ns.vectors = nil
	ns.written = fingerprint{}
	metrics.StoreInvalidations.Inc()

	s.logger.Info("namespace changed on disk, dropping cached copy",
		zap.String("namespace", namespaceID),
	)
}
