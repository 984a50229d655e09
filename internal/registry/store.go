package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kamusis/tooldeck/internal/catalog"
	"github.com/kamusis/tooldeck/internal/manifest"
)

var (
	// ErrMalformedIndex indicates an index file that cannot be decoded.
	ErrMalformedIndex = errors.New("malformed index")
	// ErrNoIndex indicates the registry has no persisted index yet.
	ErrNoIndex = errors.New("index not found (run 'tooldeck index')")
	// ErrIndexLocked indicates another process holds the index lock.
	ErrIndexLocked = errors.New("index is locked by another process")
)

// lockTimeout bounds how long Save waits for the index lock.
var lockTimeout = 5 * time.Second

// Load replaces the catalog with the persisted index. Only a file that
// is not an index at all, or whose YAML cannot be decoded, is an error;
// ids and keys the catalog does not understand are ignored.
func (r *Registry) Load() error {
	path := r.IndexPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoIndex, path)
		}
		return fmt.Errorf("cannot read index %s: %w", path, err)
	}
	if !manifest.IsIndex(data) {
		return fmt.Errorf("%w: %s does not start with %q", ErrMalformedIndex, path, manifest.IndexMarker)
	}

	var snap catalog.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedIndex, path, err)
	}

	c := NewCatalog()
	c.Deserialize(&snap)
	r.replace(c, nil)
	r.logger.Debug("index loaded",
		zap.String("registry", r.name),
		zap.String("path", path),
		zap.Int("items", c.Len()))
	return nil
}

// Save writes the catalog to the index file. The file is replaced
// atomically under an exclusive lock on index.lock next to it.
func (r *Registry) Save() error {
	r.mu.RLock()
	snap := r.catalog.Serialize()
	r.mu.RUnlock()

	body, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cannot marshal index: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(manifest.IndexMarker)
	buf.WriteByte('\n')
	buf.Write(body)

	unlock, err := r.acquireIndexLock(lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := r.IndexPath()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := atomicReplace(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot replace index %s: %w", path, err)
	}
	r.logger.Debug("index saved", zap.String("registry", r.name), zap.String("path", path))
	return nil
}

// atomicReplace replaces dest with src by renaming, keeping a backup of
// dest until the rename succeeds.
func atomicReplace(src, dest string) error {
	backup := dest + ".bak"
	_ = os.Remove(backup)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dest); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, dest)
		}
		return err
	}
	_ = os.Remove(backup)
	return nil
}

// acquireIndexLock obtains the registry's index lock, retrying until timeout.
func (r *Registry) acquireIndexLock(timeout time.Duration) (func(), error) {
	lockPath := filepath.Join(r.root, "index.lock")
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s)", ErrIndexLocked, lockPath)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
