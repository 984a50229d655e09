package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kamusis/tooldeck/internal/config"
	"github.com/kamusis/tooldeck/internal/hostctx"
	"github.com/kamusis/tooldeck/internal/query"
	"github.com/kamusis/tooldeck/internal/registry"
	"github.com/kamusis/tooldeck/internal/resolve"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	return cfg, nil
}

// hostOverrides returns the host file overrides with --set flags on top.
func hostOverrides(cfg *config.Config) (hostctx.Overrides, error) {
	pairs, err := config.LoadHostEnv(cfg.HostFile)
	if err != nil {
		return nil, err
	}
	flags, err := hostctx.ParseAssignments(flagSet)
	if err != nil {
		return nil, err
	}
	return hostctx.ParseOverrides(pairs).Merge(flags), nil
}

// hostContext detects the host and applies the configured overrides.
func hostContext(cfg *config.Config) (query.Context, error) {
	o, err := hostOverrides(cfg)
	if err != nil {
		return nil, err
	}
	return o.Apply(hostctx.Detect()), nil
}

// selectedRegistries returns the configured registries, or only the one
// named by --registry.
func selectedRegistries(cfg *config.Config) ([]config.Registry, error) {
	if flagRegistry == "" {
		if len(cfg.Registries) == 0 {
			return nil, errors.New("no registries configured in tooldeck.yaml")
		}
		return cfg.Registries, nil
	}
	r, ok := cfg.FindRegistry(flagRegistry)
	if !ok {
		return nil, fmt.Errorf("registry %q is not configured", flagRegistry)
	}
	return []config.Registry{r}, nil
}

func openRegistry(cfg *config.Config, rc config.Registry) (*registry.Registry, error) {
	return registry.Open(rc.Path,
		registry.WithName(rc.Name),
		registry.WithLogger(logger),
		registry.WithConcurrency(cfg.Concurrency))
}

// openRegistries opens every selected registry and loads its index. A
// registry without a usable index is regenerated in memory. Registries
// that cannot be opened are reported and skipped.
func openRegistries(ctx context.Context, cfg *config.Config) ([]*registry.Registry, error) {
	rcs, err := selectedRegistries(cfg)
	if err != nil {
		return nil, err
	}

	var out []*registry.Registry
	for _, rc := range rcs {
		r, err := openRegistry(cfg, rc)
		if err != nil {
			printWarn(rc.Name, err.Error())
			continue
		}
		if err := r.Load(); err != nil {
			if !errors.Is(err, registry.ErrNoIndex) {
				printWarn(rc.Name, err.Error())
			}
			if _, err := r.Regenerate(ctx); err != nil {
				printWarn(rc.Name, fmt.Sprintf("cannot scan registry: %v", err))
				continue
			}
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.New("no usable registry (run 'tooldeck doctor')")
	}
	return out, nil
}

// lookupChain returns the registries as one lookup, in configured order.
func lookupChain(regs []*registry.Registry) registry.Chain {
	chain := make(registry.Chain, len(regs))
	for i, r := range regs {
		chain[i] = r
	}
	return chain
}

// findArtifact looks id up across regs and fails when it is absent.
func findArtifact(ctx context.Context, regs []*registry.Registry, id, versionRange string) (*resolve.Artifact, *registry.Registry, error) {
	a, r, err := registry.Find(ctx, regs, id, versionRange)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		if versionRange == "" {
			return nil, nil, fmt.Errorf("artifact %q not found.\nTip: run 'tooldeck search %s' to see what is available.", id, id)
		}
		return nil, nil, fmt.Errorf("no version of %q satisfies %q", id, versionRange)
	}
	return a, r, nil
}
