package registry

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/resolve"
)

// Lookup returns the highest version of id satisfying versionRange, or
// (nil, nil) when none does. An empty range or "*" accepts any version.
// Documents that cannot be read or carry an invalid version are passed
// over.
func (r *Registry) Lookup(ctx context.Context, id, versionRange string) (*resolve.Artifact, error) {
	var constraint *semver.Constraints
	if !demand.IsAnyVersion(versionRange) {
		c, err := semver.NewConstraint(versionRange)
		if err != nil {
			return nil, fmt.Errorf("%w %q for %s: %v", demand.ErrInvalidRange, versionRange, id, err)
		}
		constraint = c
	}

	var (
		best    *resolve.Artifact
		bestVer *semver.Version
	)
	for _, target := range r.Where().Equals(KeyID, id).Targets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := r.Artifact(target)
		if err != nil {
			r.logger.Warn("cannot read candidate",
				zap.String("registry", r.name),
				zap.String("target", target),
				zap.Error(err))
			continue
		}
		if a.ID != id {
			continue // index is stale
		}
		v, err := semver.NewVersion(a.Version)
		if err != nil {
			continue
		}
		if constraint != nil && !constraint.Check(v) {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = a, v
		}
	}
	return best, nil
}

// Chain looks an artifact up in several registries in order; the first
// registry that has it wins.
type Chain []resolve.Lookup

// Lookup implements resolve.Lookup.
func (c Chain) Lookup(ctx context.Context, id, versionRange string) (*resolve.Artifact, error) {
	for _, l := range c {
		a, err := l.Lookup(ctx, id, versionRange)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

// Find returns the artifact for id and range from the first registry in
// the chain that has it, together with that registry.
func Find(ctx context.Context, regs []*Registry, id, versionRange string) (*resolve.Artifact, *Registry, error) {
	for _, r := range regs {
		a, err := r.Lookup(ctx, id, versionRange)
		if err != nil {
			return nil, nil, err
		}
		if a != nil {
			return a, r, nil
		}
	}
	return nil, nil, nil
}
