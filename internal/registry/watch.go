package registry

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kamusis/tooldeck/internal/manifest"
)

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota // document written or created
	ChangeRemoved                    // document deleted or renamed away
)

func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "modified"
}

// Change is a settled change to one metadata document.
type Change struct {
	Kind ChangeKind
	File string // absolute path
}

// Watcher monitors a registry directory tree for document changes.
type Watcher struct {
	Root    string
	Changes <-chan Change // read-only external channel

	debounce time.Duration
	logger   *zap.Logger
	changes  chan Change
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the registry's root directory.
func (r *Registry) NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	ch := make(chan Change, 16)
	return &Watcher{
		Root:     r.root,
		Changes:  ch,
		debounce: debounce,
		logger:   r.logger,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start watches the root and every non-hidden directory below it. On
// failure the watcher is released; Stop remains safe to call.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and its channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				// Drain pending on close.
				for file := range pending {
					w.emit(file)
				}
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !strings.HasPrefix(filepath.Base(event.Name), ".") {
						_ = w.watcher.Add(event.Name)
					}
					continue
				}
			}
			if !w.isDocument(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= w.debounce {
					w.emit(file)
					delete(pending, file)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.String("root", w.Root), zap.Error(err))
		}
	}
}

func (w *Watcher) isDocument(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || base == IndexFileName {
		return false
	}
	return manifest.IsMetadataFile(base)
}

func (w *Watcher) emit(file string) {
	kind := ChangeModified
	if _, err := os.Stat(file); os.IsNotExist(err) {
		kind = ChangeRemoved
	}
	w.logger.Debug("document changed", zap.String("file", file), zap.Stringer("kind", kind))
	w.changes <- Change{Kind: kind, File: file}
}
