package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
)

// File persists snapshots to a single file. Commit writes to a
// temporary file in the same directory and renames it over the target,
// so readers never observe a partial snapshot.
type File struct {
	path string
	log  logger.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFile creates a file backend for path. The parent directory must
// exist.
func NewFile(path string, log logger.Logger) (*File, error) {
	if path == "" {
		return nil, domain.ErrInvalidParameter.WithDetails("snapshot path is empty")
	}
	if log == nil {
		log = logger.Default()
	}
	return &File{path: path, log: log}, nil
}

// Path returns the snapshot file path.
func (f *File) Path() string {
	return f.path
}

// Commit atomically replaces the snapshot file.
func (f *File) Commit(data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file.
func (f *File) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound.WithDetails("no snapshot file at " + f.path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Watch invokes onChange whenever the snapshot file is replaced by an
// external writer. A replacement typically arrives as a burst of
// events; a rate limiter coalesces the burst into one callback. Close
// stops the watcher.
func (f *File) Watch(onChange func()) error {
	if f.watcher != nil {
		return domain.ErrAlreadyExists.WithDetails("watcher already running")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: renames replace the inode.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	f.watcher = w
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if !limiter.Allow() {
					continue
				}
				f.log.Debug("snapshot file changed", "path", f.path)
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn("snapshot watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (f *File) Close() error {
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	<-f.done
	f.watcher = nil
	return err
}
