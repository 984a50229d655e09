package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
	"github.com/kamusis/tooldeck/internal/resolve"
)

func writeDoc(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func doc(id, version, extra string) string {
	return fmt.Sprintf("info:\n  id: %s\n  version: %s\n%s", id, version, extra)
}

// fixture lays out a small registry:
//
//	compilers/gcc-12.yaml   gcc 12.2.0, requires cmake >=3.20
//	compilers/gcc-11.yaml   gcc 11.4.0
//	tools/cmake.yaml        cmake 3.28.1
//	tools/cmake-old.jsonc   cmake 3.10.0
//	broken.yaml             invalid query key
//	notes.md                ignored
//	.hidden/x.yaml          ignored
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeDoc(t, root, "compilers/gcc-12.yaml", doc("compilers/gnu/gcc", "12.2.0", `  summary: GNU Compiler Collection
contacts:
  Jane Doe:
    email: jane@gnu.example
requires:
  tools/kitware/cmake: ">=3.20"
windows:
  requires:
    tools/ninja: ""
`))
	writeDoc(t, root, "compilers/gcc-11.yaml", doc("compilers/gnu/gcc", "11.4.0", "  summary: GNU Compiler Collection\n"))
	writeDoc(t, root, "tools/cmake.yaml", doc("tools/kitware/cmake", "3.28.1", "  summary: Cross-platform build system\n"))
	writeDoc(t, root, "tools/cmake-old.jsonc", `{
  // legacy
  "info": {"id": "tools/kitware/cmake", "version": "3.10.0"}
}`)
	writeDoc(t, root, "broken.yaml", doc("broken", "1.0.0", "foo or (bar:100):\n  message: x\n"))
	writeDoc(t, root, "notes.md", "# notes\n")
	writeDoc(t, root, ".hidden/x.yaml", doc("hidden", "1.0.0", ""))
	return root
}

func openFixture(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(fixture(t), WithName("test"), WithConcurrency(2))
	require.NoError(t, err)
	return r
}

func TestDiscover(t *testing.T) {
	root := fixture(t)
	writeDoc(t, root, IndexFileName, manifest.IndexMarker+"\n")

	got, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"broken.yaml",
		"compilers/gcc-11.yaml",
		"compilers/gcc-12.yaml",
		"tools/cmake-old.jsonc",
		"tools/cmake.yaml",
	}, got)

	none, err := Discover(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegenerate(t *testing.T) {
	r := openFixture(t)
	rep, err := r.Regenerate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Scanned)
	assert.Equal(t, 4, rep.Indexed)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "broken.yaml", rep.Skipped[0].Target)
	assert.True(t, errors.Is(rep.Summary(), demand.ErrInvalidQuery))
	assert.Equal(t, 4, r.Len())

	assert.Equal(t, []string{"compilers/gcc-11.yaml", "compilers/gcc-12.yaml"},
		r.Where().Contains(KeySummary, "compiler").Targets())
	assert.Equal(t, []string{"compilers/gcc-12.yaml"},
		r.Where().Equals(KeyRequires, "tools/kitware/cmake").Targets())
	assert.Equal(t, []string{"compilers/gcc-12.yaml"},
		r.Where().Equals(KeyRequires, "tools/ninja").Targets())
	assert.Equal(t, []string{"compilers/gcc-12.yaml"},
		r.Where().Contains(KeyContactEmail, "gnu").Targets())
	assert.Equal(t, []string{"compilers/gcc-12.yaml"},
		r.Where().Equals(KeyContacts, "Jane Doe").Targets())
	assert.Equal(t, []string{"tools/cmake.yaml"},
		r.Where().Contains(KeyID, "kitware").GreaterThan(KeyVersion, "3.20.0").Targets())
}

func TestRegenerate_Cancelled(t *testing.T) {
	r := openFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Regenerate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoad(t *testing.T) {
	r := openFixture(t)
	_, err := r.Regenerate(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Save())

	data, err := os.ReadFile(r.IndexPath())
	require.NoError(t, err)
	assert.True(t, manifest.IsIndex(data))

	// Saving twice replaces the file.
	require.NoError(t, r.Save())

	fresh, err := Open(r.Root())
	require.NoError(t, err)
	require.NoError(t, fresh.Load())
	assert.Equal(t, r.Len(), fresh.Len())
	assert.Equal(t,
		r.Where().Contains(KeySummary, "compiler").Targets(),
		fresh.Where().Contains(KeySummary, "compiler").Targets())

	// The index is not picked up as a document on the next regenerate.
	rep, err := fresh.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Indexed)
}

func TestLoad_Errors(t *testing.T) {
	r := openFixture(t)
	assert.ErrorIs(t, r.Load(), ErrNoIndex)

	writeDoc(t, r.Root(), IndexFileName, "items: []\n")
	assert.ErrorIs(t, r.Load(), ErrMalformedIndex)

	writeDoc(t, r.Root(), IndexFileName, manifest.IndexMarker+"\nitems: {not: [a list\n")
	assert.ErrorIs(t, r.Load(), ErrMalformedIndex)

	// Unknown keys and dangling ids decode fine and simply find nothing.
	writeDoc(t, r.Root(), IndexFileName, manifest.IndexMarker+"\nitems: [a.yaml]\nindexes:\n  id:\n    keys:\n      x: [9]\n  bogus:\n    keys: {}\n")
	require.NoError(t, r.Load())
	assert.Empty(t, r.Where().Equals(KeyID, "x").Targets())
}

func TestSave_Locked(t *testing.T) {
	r := openFixture(t)
	unlock, err := r.acquireIndexLock(time.Second)
	require.NoError(t, err)
	defer unlock()

	old := lockTimeout
	lockTimeout = 10 * time.Millisecond
	defer func() { lockTimeout = old }()

	assert.ErrorIs(t, r.Save(), ErrIndexLocked)
}

func TestLookup(t *testing.T) {
	r := openFixture(t)
	_, err := r.Regenerate(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		id, rng string
		want    string
	}{
		{"compilers/gnu/gcc", "", "12.2.0"},
		{"compilers/gnu/gcc", "*", "12.2.0"},
		{"compilers/gnu/gcc", "<12", "11.4.0"},
		{"compilers/gnu/gcc", "^11", "11.4.0"},
		{"tools/kitware/cmake", ">=3.20", "3.28.1"},
		{"tools/kitware/cmake", "~3.10", "3.10.0"},
		{"compilers/gnu/gcc", ">=13", ""},
		{"nope", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.id+" "+tt.rng, func(t *testing.T) {
			a, err := r.Lookup(ctx, tt.id, tt.rng)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, a)
				return
			}
			require.NotNil(t, a)
			assert.Equal(t, tt.want, a.Version)
		})
	}

	_, err = r.Lookup(ctx, "compilers/gnu/gcc", ">>1")
	assert.ErrorIs(t, err, demand.ErrInvalidRange)
}

func TestLookup_IdentityAfterLoad(t *testing.T) {
	r := openFixture(t)
	_, err := r.Regenerate(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Save())
	require.NoError(t, r.Load())

	ctx := context.Background()
	a1, err := r.Lookup(ctx, "tools/kitware/cmake", "")
	require.NoError(t, err)
	a2, err := r.Lookup(ctx, "tools/kitware/cmake", ">=3")
	require.NoError(t, err)
	require.NotNil(t, a1)
	assert.Same(t, a1, a2)

	byTarget, err := r.Artifact(a1.Target)
	require.NoError(t, err)
	assert.Same(t, a1, byTarget)
}

func TestResolveThroughRegistry(t *testing.T) {
	r := openFixture(t)
	_, err := r.Regenerate(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	gcc, err := r.Lookup(ctx, "compilers/gnu/gcc", "")
	require.NoError(t, err)

	set, err := resolve.New(r, query.Context{"linux": true}).Resolve(ctx, gcc)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "3.28.1", set.Artifacts()[0].Version)

	// On windows gcc also needs ninja, which no registry has.
	_, err = resolve.New(r, query.Context{"windows": true}).Resolve(ctx, gcc)
	assert.ErrorIs(t, err, resolve.ErrUnresolvedDependency)

	extra := t.TempDir()
	writeDoc(t, extra, "ninja.yaml", doc("tools/ninja", "1.11.1", ""))
	r2, err := Open(extra)
	require.NoError(t, err)
	_, err = r2.Regenerate(ctx)
	require.NoError(t, err)

	set, err = resolve.New(Chain{r, r2}, query.Context{"windows": true}).Resolve(ctx, gcc)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	a, from, err := Find(ctx, []*Registry{r, r2}, "tools/ninja", "")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Same(t, r2, from)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = Open(f)
	require.Error(t, err)
}

func TestWatcher(t *testing.T) {
	r := openFixture(t)
	w, err := r.NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	target := filepath.Join(r.Root(), "tools", "ninja.yaml")
	writeDoc(t, r.Root(), "tools/ninja.yaml", doc("tools/ninja", "1.11.1", ""))

	select {
	case ch := <-w.Changes:
		assert.Equal(t, ChangeModified, ch.Kind)
		assert.Equal(t, target, ch.File)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	require.NoError(t, os.Remove(target))
	select {
	case ch := <-w.Changes:
		assert.Equal(t, ChangeRemoved, ch.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for removal")
	}
}

func TestWatcher_StartFailureReleases(t *testing.T) {
	r := openFixture(t)
	w, err := r.NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(r.Root()))

	require.Error(t, w.Start())

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
	_, open := <-w.Changes
	assert.False(t, open)
}
