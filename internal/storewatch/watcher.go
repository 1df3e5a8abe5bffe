package storewatch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the delay after an fsnotify event before checking the
// checksum, letting atomic write+rename sequences settle.
const DebounceInterval = 100 * time.Millisecond

// Checksummer reports the checksum of the document content the store last
// wrote itself.
type Checksummer interface {
	LastWrittenSum() [sha256.Size]byte
}

// Watcher observes the backing document on disk and warns when another
// process rewrites it. The store is last-write-wins: foreign writes are
// never merged and the next mutation overwrites them.
type Watcher struct {
	path  string
	store Checksummer
}

func New(path string, store Checksummer) *Watcher {
	return &Watcher{path: path, store: store}
}

// Start watches until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directory, not the file itself: the store writes via
	// temp file + rename, which changes the inode on every write.
	watchDir := filepath.Dir(w.path)
	docName := filepath.Base(w.path)
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", watchDir, err)
	}
	slog.Debug("watching store document", "path", w.path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != docName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(DebounceInterval, func() {
				w.check(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("store watcher error", "error", err)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	sum, err := hashFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.WarnContext(ctx, "store document removed on disk; it will be recreated on the next write", "path", w.path)
			return
		}
		slog.WarnContext(ctx, "failed to hash store document", "path", w.path, "error", err)
		return
	}
	if sum != w.store.LastWrittenSum() {
		slog.WarnContext(ctx, "store document modified by another process; foreign changes are not merged and the next write overwrites them", "path", w.path)
	}
}

func hashFile(path string) ([sha256.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("hash %s: %w", path, err)
	}
	var result [sha256.Size]byte
	copy(result[:], h.Sum(nil))
	return result, nil
}
