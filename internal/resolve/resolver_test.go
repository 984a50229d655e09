package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
)

// memLookup serves artifacts from memory, ignoring version ranges.
type memLookup struct {
	mu    sync.Mutex
	items map[string]*Artifact
	calls []string
}

func (m *memLookup) Lookup(_ context.Context, id, _ string) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, id)
	return m.items[id], nil
}

// artifact builds an artifact whose unconditional block requires deps.
func artifact(t *testing.T, id string, deps ...string) *Artifact {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "info:\n  id: %s\n  version: 1.0.0\n", id)
	if len(deps) > 0 {
		b.WriteString("requires:\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "  %s: \"*\"\n", d)
		}
	}
	doc, err := manifest.Parse([]byte(b.String()), id+".yaml")
	require.NoError(t, err)
	return &Artifact{ID: id, Version: "1.0.0", Target: id + ".yaml", Document: doc}
}

func registryOf(arts ...*Artifact) *memLookup {
	m := &memLookup{items: make(map[string]*Artifact)}
	for _, a := range arts {
		m.items[a.ID] = a
	}
	return m
}

func keys(s *Set) []string {
	var out []string
	for _, a := range s.Artifacts() {
		out = append(out, a.ID)
	}
	return out
}

func TestResolve_Diamond(t *testing.T) {
	a := artifact(t, "a", "b", "c")
	b := artifact(t, "b", "d")
	c := artifact(t, "c", "d")
	d := artifact(t, "d")

	set, err := New(registryOf(a, b, c, d), query.Context{}).Resolve(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d", "c"}, keys(set))
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Contains(a))
	assert.True(t, set.Contains(d))
	assert.NotNil(t, set.Demand(d))
	assert.Nil(t, set.Demand(a))
}

func TestResolve_NoRequires(t *testing.T) {
	a := artifact(t, "a")
	set, err := New(registryOf(a), query.Context{}).Resolve(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestResolve_HostSelectsRequires(t *testing.T) {
	doc, err := manifest.Parse([]byte(`info:
  id: a
  version: 1.0.0
windows:
  requires:
    w: ""
linux:
  requires:
    l: ""
`), "a.yaml")
	require.NoError(t, err)
	a := &Artifact{ID: "a", Version: "1.0.0", Document: doc}
	lk := registryOf(artifact(t, "w"), artifact(t, "l"))

	set, err := New(lk, query.Context{"linux": true}).Resolve(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{"l"}, keys(set))
}

func TestResolve_Unresolved(t *testing.T) {
	a := artifact(t, "a", "b")
	b := artifact(t, "b", "missing")

	_, err := New(registryOf(a, b), query.Context{}).Resolve(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedDependency))

	var ue *UnresolvedDependencyError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "missing", ue.ID)
	assert.Equal(t, "*", ue.Range)
	assert.Equal(t, "b@1.0.0", ue.Requester)
	assert.Nil(t, ue.Err)
}

func TestResolve_LookupFailureIsUnresolved(t *testing.T) {
	a := artifact(t, "a", "b")
	boom := errors.New("registry offline")
	lk := LookupFunc(func(context.Context, string, string) (*Artifact, error) {
		return nil, boom
	})

	_, err := New(lk, query.Context{}).Resolve(context.Background(), a)
	assert.True(t, errors.Is(err, ErrUnresolvedDependency))
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "registry offline")
}

func TestResolve_Cycle(t *testing.T) {
	a := artifact(t, "a", "b")
	b := artifact(t, "b", "c")
	c := artifact(t, "c", "a")

	_, err := New(registryOf(a, b, c), query.Context{}).Resolve(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicDependency))

	var ce *CyclicDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"a@1.0.0", "b@1.0.0", "c@1.0.0", "a@1.0.0"}, ce.Path)
}

func TestResolve_SelfRequire(t *testing.T) {
	a := artifact(t, "a", "a")
	_, err := New(registryOf(a), query.Context{}).Resolve(context.Background(), a)
	assert.True(t, errors.Is(err, ErrCyclicDependency))
}

func TestResolve_Cancelled(t *testing.T) {
	a := artifact(t, "a", "b")
	b := artifact(t, "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(registryOf(a, b), query.Context{}).Resolve(ctx, a)
	assert.True(t, errors.Is(err, ErrUnresolvedDependency))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolve_AmbiguousInstallAborts(t *testing.T) {
	doc, err := manifest.Parse([]byte(`info:
  id: b
  version: 1.0.0
install:
  unzip: https://example.com/b.zip
windows:
  install:
    unzip: https://example.com/b-win.zip
`), "b.yaml")
	require.NoError(t, err)
	b := &Artifact{ID: "b", Version: "1.0.0", Document: doc}
	a := artifact(t, "a", "b")

	_, err = New(registryOf(a, b), query.Context{"windows": true}).Resolve(context.Background(), a)
	assert.True(t, errors.Is(err, demand.ErrAmbiguousInstall))
}

func TestResolve_DeterministicWithConcurrency(t *testing.T) {
	deps := []string{"d1", "d2", "d3", "d4", "d5", "d6"}
	arts := []*Artifact{artifact(t, "root", deps...)}
	for _, d := range deps {
		arts = append(arts, artifact(t, d))
	}
	lk := registryOf(arts...)

	for range 5 {
		set, err := New(lk, query.Context{}, WithConcurrency(3)).Resolve(context.Background(), arts[0])
		require.NoError(t, err)
		assert.Equal(t, deps, keys(set))
	}
}
