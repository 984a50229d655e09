package registry

import (
	"github.com/kamusis/tooldeck/internal/catalog"
	"github.com/kamusis/tooldeck/internal/manifest"
)

// Catalog key names.
const (
	KeyID           = "id"
	KeyVersion      = "version"
	KeySummary      = "summary"
	KeyDescription  = "description"
	KeyRequires     = "requires"
	KeyContacts     = "contacts"
	KeyContactEmail = "contacts.email"
)

func one(s string) []any {
	if s == "" {
		return nil
	}
	return []any{s}
}

// NewCatalog returns an empty catalog with the registry's keys.
func NewCatalog() *catalog.Catalog[*manifest.Document] {
	return catalog.New(
		catalog.KeySpec[*manifest.Document]{
			Name:    KeyID,
			Words:   true,
			Extract: func(d *manifest.Document, _ any) []any { return one(d.Info.ID) },
		},
		catalog.KeySpec[*manifest.Document]{
			Name:    KeyVersion,
			Kind:    catalog.Semver,
			Extract: func(d *manifest.Document, _ any) []any { return one(d.Info.Version) },
		},
		catalog.KeySpec[*manifest.Document]{
			Name:    KeySummary,
			Words:   true,
			Extract: func(d *manifest.Document, _ any) []any { return one(d.Info.Summary) },
		},
		catalog.KeySpec[*manifest.Document]{
			Name:    KeyDescription,
			Words:   true,
			Extract: func(d *manifest.Document, _ any) []any { return one(d.Info.Description) },
		},
		catalog.KeySpec[*manifest.Document]{
			Name:    KeyRequires,
			Extract: requiredIDs,
		},
		catalog.KeySpec[*manifest.Document]{
			Name: KeyContacts,
			Extract: func(d *manifest.Document, _ any) []any {
				out := make([]any, 0, len(d.Contacts))
				for _, c := range d.Contacts {
					out = append(out, c)
				}
				return out
			},
			Nested: []catalog.KeySpec[*manifest.Document]{{
				Name:  "email",
				Words: true,
				Extract: func(_ *manifest.Document, parent any) []any {
					c, ok := parent.(manifest.Contact)
					if !ok {
						return nil
					}
					out := make([]any, 0, len(c.Email))
					for _, e := range c.Email {
						out = append(out, e)
					}
					return out
				},
			}},
		},
	)
}

// requiredIDs lists every id required by any block of d, whatever host
// it applies to.
func requiredIDs(d *manifest.Document, _ any) []any {
	seen := make(map[string]bool)
	var out []any
	add := func(b *manifest.Block) {
		for _, id := range b.Requires.Keys() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	add(&d.Global)
	for i := range d.Entries {
		add(&d.Entries[i].Block)
	}
	return out
}
