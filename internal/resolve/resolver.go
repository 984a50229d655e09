// Package resolve computes the transitive closure of an artifact's
// requires edges for one host.
package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/query"
)

// DefaultConcurrency bounds the lookups issued for one artifact's requires.
const DefaultConcurrency = 8

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Resolver resolves dependency sets against a Lookup for a fixed host.
type Resolver struct {
	lookup      Lookup
	host        query.Context
	logger      *zap.Logger
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for lookup tracing.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConcurrency bounds concurrent sibling lookups. n < 1 is ignored.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New returns a Resolver that selects demand blocks for host.
func New(lookup Lookup, host query.Context, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		host:        host,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// session holds the state of one Resolve call.
type session struct {
	state map[*Artifact]visitState
	path  []*Artifact
	set   *Set
}

// Resolve returns every artifact reachable from root through the
// requires of each artifact's effective demand, in depth-first pre-order.
// root itself is not part of the set. Any missing dependency, cycle or
// ambiguous install fails the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, root *Artifact) (*Set, error) {
	eff, err := demand.Aggregate(root.Document, r.host)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root.Key(), err)
	}
	s := &session{
		state: make(map[*Artifact]visitState),
		set:   newSet(),
	}
	if err := r.visit(ctx, s, root, eff); err != nil {
		return nil, err
	}
	return s.set, nil
}

func (r *Resolver) visit(ctx context.Context, s *session, a *Artifact, eff *demand.Effective) error {
	s.state[a] = inProgress
	s.path = append(s.path, a)

	deps, err := r.lookupAll(ctx, a, eff)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		switch s.state[dep] {
		case inProgress:
			return &CyclicDependencyError{Path: cyclePath(s.path, dep)}
		case done:
			continue
		}

		depEff, err := demand.Aggregate(dep.Document, r.host)
		if err != nil {
			return fmt.Errorf("resolving %s (required by %s): %w", dep.Key(), a.Key(), err)
		}
		s.set.add(dep, depEff)
		if err := r.visit(ctx, s, dep, depEff); err != nil {
			return err
		}
	}

	s.path = s.path[:len(s.path)-1]
	s.state[a] = done
	return nil
}

// lookupAll resolves every requirement of a concurrently and returns the
// artifacts in declared order. The first failure in declared order wins.
func (r *Resolver) lookupAll(ctx context.Context, a *Artifact, eff *demand.Effective) ([]*Artifact, error) {
	ids := eff.Requires.Keys()
	found := make([]*Artifact, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		versionRange, _ := eff.Requires.Get(id)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			found[i], errs[i] = r.lookup.Lookup(ctx, id, versionRange)
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range ids {
		versionRange, _ := eff.Requires.Get(id)
		if errs[i] == nil && found[i] != nil {
			r.logger.Debug("resolved dependency",
				zap.String("requester", a.Key()),
				zap.String("id", id),
				zap.String("range", versionRange),
				zap.String("version", found[i].Version))
			continue
		}
		r.logger.Debug("unresolved dependency",
			zap.String("requester", a.Key()),
			zap.String("id", id),
			zap.String("range", versionRange),
			zap.Error(errs[i]))
		return nil, &UnresolvedDependencyError{
			ID:        id,
			Range:     versionRange,
			Requester: a.Key(),
			Err:       errs[i],
		}
	}
	return found, nil
}

func cyclePath(path []*Artifact, back *Artifact) []string {
	start := 0
	for i, p := range path {
		if p == back {
			start = i
			break
		}
	}
	out := make([]string, 0, len(path)-start+1)
	for _, p := range path[start:] {
		out = append(out, p.Key())
	}
	return append(out, back.Key())
}
