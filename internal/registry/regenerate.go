package registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
)

// Problem is a document left out of the catalog and why.
type Problem struct {
	Target string
	Errs   []error
}

// Report summarizes a Regenerate run.
type Report struct {
	Scanned int
	Indexed int
	Skipped []Problem
}

// Regenerate rebuilds the catalog from the documents under the registry
// root. Documents are parsed and validated concurrently, then inserted
// one at a time in path order so item ids are stable. Documents that do
// not parse or fail validation are reported and skipped; they never fail
// the run.
func (r *Registry) Regenerate(ctx context.Context) (*Report, error) {
	targets, err := Discover(r.root)
	if err != nil {
		return nil, err
	}
	r.logger.Info("regenerating catalog",
		zap.String("registry", r.name),
		zap.Int("documents", len(targets)))

	docs := make([]*manifest.Document, len(targets))
	problems := make([][]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i], problems[i] = r.readDocument(target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("regenerate %s: %w", r.name, err)
	}

	c := NewCatalog()
	parsed := make(map[string]*manifest.Document, len(targets))
	report := &Report{Scanned: len(targets)}
	for i, target := range targets {
		if docs[i] == nil {
			if len(problems[i]) > 0 {
				report.Skipped = append(report.Skipped, Problem{Target: target, Errs: problems[i]})
				r.logger.Warn("skipping document",
					zap.String("registry", r.name),
					zap.String("target", target),
					zap.Errors("errors", problems[i]))
			}
			continue
		}
		c.Insert(docs[i], target)
		parsed[target] = docs[i]
		report.Indexed++
	}
	r.replace(c, parsed)

	r.logger.Info("catalog regenerated",
		zap.String("registry", r.name),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// readDocument parses and validates one target. A persisted index found
// among the documents yields neither a document nor problems.
func (r *Registry) readDocument(target string) (*manifest.Document, []error) {
	path := r.abs(target)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("cannot read %s: %w", path, err)}
	}
	if manifest.IsIndex(data) {
		return nil, nil
	}
	doc, err := manifest.Parse(data, path)
	if err != nil {
		return nil, []error{err}
	}
	verrs := demand.Validate(doc)
	if len(verrs) == 0 {
		return doc, nil
	}
	errs := make([]error, len(verrs))
	for i := range verrs {
		errs[i] = &verrs[i]
	}
	return nil, errs
}

// Summary joins the problems of a report into one error, or nil.
func (rep *Report) Summary() error {
	var errs []error
	for _, p := range rep.Skipped {
		errs = append(errs, p.Errs...)
	}
	return errors.Join(errs...)
}
