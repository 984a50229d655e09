// Package registry serves artifacts from a directory of metadata
// documents. It keeps a searchable catalog of the directory, persists it
// as an index file, and implements dependency lookup over it.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kamusis/tooldeck/internal/catalog"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/resolve"
)

// IndexFileName is the name of the persisted index inside a registry root.
const IndexFileName = "tooldeck-index.yaml"

// Cursor searches a registry's catalog.
type Cursor = catalog.Cursor[*manifest.Document]

// Registry is a metadata directory and its catalog. Artifacts handed out
// by one Registry are unique per id and version until the catalog is
// replaced by Regenerate or Load.
type Registry struct {
	name        string
	root        string
	logger      *zap.Logger
	concurrency int

	mu        sync.RWMutex
	catalog   *catalog.Catalog[*manifest.Document]
	byTarget  map[string]*resolve.Artifact
	byVersion map[string]*resolve.Artifact // "id@version"
}

// Option configures a Registry.
type Option func(*Registry)

// WithName sets the name used in logs and reports. It defaults to the
// base name of the root directory.
func WithName(name string) Option {
	return func(r *Registry) { r.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConcurrency bounds the documents parsed at once by Regenerate.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// Open returns a registry rooted at root with an empty catalog. Call Load
// or Regenerate to fill it.
func Open(root string, opts ...Option) (*Registry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve registry root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot open registry %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry path is not a directory: %s", abs)
	}

	r := &Registry{
		name:        filepath.Base(abs),
		root:        abs,
		logger:      zap.NewNop(),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.replace(NewCatalog(), nil)
	return r, nil
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Root returns the absolute registry directory.
func (r *Registry) Root() string { return r.root }

// IndexPath returns the path of the persisted index.
func (r *Registry) IndexPath() string {
	return filepath.Join(r.root, IndexFileName)
}

// Len returns the number of indexed documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Len()
}

// Where returns a cursor over every indexed document. The cursor keeps
// reading the catalog it was created from even if the registry is
// regenerated meanwhile.
func (r *Registry) Where() *Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Where()
}

// Values returns the distinct values of a catalog key in key order.
func (r *Registry) Values(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog.Values(key)
}

// replace swaps in a new catalog and resets the artifact cache, seeding
// it with already parsed documents keyed by target.
func (r *Registry) replace(c *catalog.Catalog[*manifest.Document], docs map[string]*manifest.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = c
	r.byTarget = make(map[string]*resolve.Artifact)
	r.byVersion = make(map[string]*resolve.Artifact)
	for target, doc := range docs {
		r.remember(target, doc)
	}
}

// remember caches the artifact for doc. The caller holds mu.
func (r *Registry) remember(target string, doc *manifest.Document) *resolve.Artifact {
	if a, ok := r.byTarget[target]; ok {
		return a
	}
	a := &resolve.Artifact{
		ID:       doc.Info.ID,
		Version:  doc.Info.Version,
		Target:   target,
		Document: doc,
	}
	if prev, ok := r.byVersion[a.Key()]; ok {
		a = prev
	} else {
		r.byVersion[a.Key()] = a
	}
	r.byTarget[target] = a
	return a
}

// Artifact returns the artifact for a catalog target, reading its
// document on first use.
func (r *Registry) Artifact(target string) (*resolve.Artifact, error) {
	r.mu.RLock()
	a, ok := r.byTarget[target]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	doc, err := manifest.ReadFile(r.abs(target))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remember(target, doc), nil
}

// abs resolves a catalog target against the registry root.
func (r *Registry) abs(target string) string {
	return filepath.Join(r.root, filepath.FromSlash(target))
}
