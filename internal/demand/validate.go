package demand

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
)

// Validate checks a document for authoring errors: missing identity,
// malformed version, malformed media queries, repeated block keys and
// unparseable version ranges. Every problem is collected; nothing fails
// fast.
func Validate(doc *manifest.Document) []ValidationError {
	var errs []ValidationError

	if doc.Info.ID == "" {
		errs = append(errs, ValidationError{
			Category: ValCatMissingField,
			Source:   doc.Source,
			Err:      fmt.Errorf("%w: info.id", ErrMissingField),
		})
	}
	if doc.Info.Version == "" {
		errs = append(errs, ValidationError{
			Category: ValCatMissingField,
			Source:   doc.Source,
			Err:      fmt.Errorf("%w: info.version", ErrMissingField),
		})
	} else if _, err := semver.NewVersion(doc.Info.Version); err != nil {
		errs = append(errs, ValidationError{
			Category: ValCatInvalidVersion,
			Source:   doc.Source,
			Err:      fmt.Errorf("%w %q: %v", ErrInvalidVersion, doc.Info.Version, err),
		})
	}

	errs = append(errs, validateRanges(doc, "", &doc.Global, 0, 0)...)

	seen := make(map[string]int) // query -> line of first definition
	for i := range doc.Entries {
		e := &doc.Entries[i]

		if l := query.Parse(e.Query); !l.IsValid() {
			line, column := e.Line+l.Err.Line-1, l.Err.Column
			if l.Err.Line == 1 {
				column += e.Column - 1
			}
			errs = append(errs, ValidationError{
				Category: ValCatParse,
				Source:   doc.Source,
				Query:    e.Query,
				Line:     line,
				Column:   column,
				Err:      fmt.Errorf("%w %q: %s", ErrInvalidQuery, e.Query, l.Err.Message),
			})
		}

		if first, ok := seen[e.Query]; ok {
			errs = append(errs, ValidationError{
				Category: ValCatDuplicateKey,
				Source:   doc.Source,
				Query:    e.Query,
				Line:     e.Line,
				Column:   e.Column,
				Err:      fmt.Errorf("%w: %q already defined at line %d", ErrDuplicateKey, e.Query, first),
			})
		} else {
			seen[e.Query] = e.Line
		}

		errs = append(errs, validateRanges(doc, e.Query, &e.Block, e.Line, e.Column)...)
	}

	return errs
}

func validateRanges(doc *manifest.Document, key string, b *manifest.Block, line, column int) []ValidationError {
	var errs []ValidationError
	for _, id := range b.Requires.Keys() {
		r, _ := b.Requires.Get(id)
		if IsAnyVersion(r) {
			continue
		}
		if _, err := semver.NewConstraint(r); err != nil {
			errs = append(errs, ValidationError{
				Category: ValCatInvalidRange,
				Source:   doc.Source,
				Query:    key,
				Line:     line,
				Column:   column,
				Err:      fmt.Errorf("%w %q for %s: %v", ErrInvalidRange, r, id, err),
			})
		}
	}
	return errs
}

// IsAnyVersion reports whether a version range accepts every version.
func IsAnyVersion(r string) bool {
	return r == "" || r == "*"
}
