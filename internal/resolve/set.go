package resolve

import (
	"context"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
)

// Artifact is one version of one artifact known to a registry. A registry
// hands out a single *Artifact per id and version for the life of a
// session, so pointer equality is identity.
type Artifact struct {
	ID       string
	Version  string
	Target   string // where the metadata document was read from
	Document *manifest.Document
}

// Key returns "id@version".
func (a *Artifact) Key() string {
	return a.ID + "@" + a.Version
}

// Lookup finds the artifact satisfying a version range. It returns
// (nil, nil) when no such artifact exists. Implementations must be safe
// for concurrent use.
type Lookup interface {
	Lookup(ctx context.Context, id, versionRange string) (*Artifact, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, id, versionRange string) (*Artifact, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, id, versionRange string) (*Artifact, error) {
	return f(ctx, id, versionRange)
}

// Member is an artifact in a resolved set together with its effective
// demand for the resolving host.
type Member struct {
	Artifact *Artifact
	Demand   *demand.Effective
}

// Set is an insertion-ordered set of artifacts keyed by identity.
type Set struct {
	members []Member
	index   map[*Artifact]int
}

func newSet() *Set {
	return &Set{index: make(map[*Artifact]int)}
}

func (s *Set) add(a *Artifact, eff *demand.Effective) bool {
	if _, ok := s.index[a]; ok {
		return false
	}
	s.index[a] = len(s.members)
	s.members = append(s.members, Member{Artifact: a, Demand: eff})
	return true
}

// Len returns the number of artifacts in the set.
func (s *Set) Len() int {
	return len(s.members)
}

// Contains reports whether a is in the set.
func (s *Set) Contains(a *Artifact) bool {
	_, ok := s.index[a]
	return ok
}

// Members returns the artifacts in the order they were added.
func (s *Set) Members() []Member {
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Artifacts returns the artifacts in the order they were added.
func (s *Set) Artifacts() []*Artifact {
	out := make([]*Artifact, len(s.members))
	for i, m := range s.members {
		out[i] = m.Artifact
	}
	return out
}

// Demand returns the effective demand recorded for a, or nil.
func (s *Set) Demand(a *Artifact) *demand.Effective {
	i, ok := s.index[a]
	if !ok {
		return nil
	}
	return s.members[i].Demand
}
