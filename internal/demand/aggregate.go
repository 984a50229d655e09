// Package demand selects the conditional blocks of a metadata document
// that apply to a host and merges them into one effective demand.
package demand

import (
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
)

// Effective is the merged demand of every block that applies to a host.
// It is recomputed per host and never persisted.
type Effective struct {
	Requires manifest.Dictionary
	SeeAlso  manifest.Dictionary
	Settings []manifest.Settings  // one per selected block, in selection order
	Install  []manifest.Installer // from at most one selected block
	Errors   []string
	Warnings []string
	Messages []string
	Selected []string // keys of the selected blocks; "" is the unconditional block
}

// Select returns the blocks that apply to ctx: the unconditional block
// first, then every conditional block whose query matches, in document
// order. Blocks whose key does not parse are never selected.
func Select(doc *manifest.Document, ctx query.Context) []*manifest.Entry {
	selected := []*manifest.Entry{{Block: doc.Global}}
	for i := range doc.Entries {
		e := &doc.Entries[i]
		if query.Parse(e.Query).Match(ctx) {
			selected = append(selected, e)
		}
	}
	return selected
}

// Aggregate merges the blocks of doc selected for ctx. Requires and
// see-also are unioned with later blocks winning; messages accumulate;
// settings are kept as an ordered list. More than one selected block
// supplying installers is an *AmbiguousInstallError.
func Aggregate(doc *manifest.Document, ctx query.Context) (*Effective, error) {
	eff := &Effective{}
	var installers []string

	for _, e := range Select(doc, ctx) {
		b := &e.Block
		eff.Selected = append(eff.Selected, e.Query)
		eff.Requires.Merge(&b.Requires)
		eff.SeeAlso.Merge(&b.SeeAlso)
		eff.Settings = append(eff.Settings, b.Settings)

		if b.Error != "" {
			eff.Errors = append(eff.Errors, b.Error)
		}
		if b.Warning != "" {
			eff.Warnings = append(eff.Warnings, b.Warning)
		}
		if b.Message != "" {
			eff.Messages = append(eff.Messages, b.Message)
		}
		if b.HasInstall() {
			installers = append(installers, e.Query)
			eff.Install = append(eff.Install, b.Install...)
		}
	}

	if len(installers) > 1 {
		return nil, &AmbiguousInstallError{ID: doc.Info.ID, Queries: installers}
	}
	return eff, nil
}
