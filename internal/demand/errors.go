package demand

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for demand validation and aggregation.
var (
	// ErrInvalidQuery indicates a conditional block key that does not parse.
	ErrInvalidQuery = errors.New("invalid media query")
	// ErrDuplicateKey indicates a conditional block key repeated verbatim.
	ErrDuplicateKey = errors.New("duplicate conditional block")
	// ErrAmbiguousInstall indicates more than one selected block supplies installers.
	ErrAmbiguousInstall = errors.New("ambiguous install")
	// ErrMissingField indicates a required info field is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrInvalidVersion indicates info.version is not a semantic version.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrInvalidRange indicates a requires entry with an unparseable version range.
	ErrInvalidRange = errors.New("invalid version range")
)

// ValidationCategory classifies a validation error for programmatic handling.
type ValidationCategory string

const (
	ValCatParse          ValidationCategory = "parse"
	ValCatDuplicateKey   ValidationCategory = "duplicate_key"
	ValCatMissingField   ValidationCategory = "missing_field"
	ValCatInvalidVersion ValidationCategory = "invalid_version"
	ValCatInvalidRange   ValidationCategory = "invalid_range"
)

// ValidationError records one problem in a document, positioned relative
// to the document so an author can find it.
type ValidationError struct {
	Category ValidationCategory
	Source   string
	Query    string // conditional block key, empty for document-level problems
	Line     int
	Column   int
	Err      error
}

// Error returns "source:line:col: message".
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AmbiguousInstallError reports the selected blocks that each supply
// installers for the same host.
type AmbiguousInstallError struct {
	ID      string
	Queries []string // selected block keys that define install; "" is the unconditional block
}

func (e *AmbiguousInstallError) Error() string {
	names := make([]string, len(e.Queries))
	for i, q := range e.Queries {
		if q == "" {
			names[i] = "(unconditional)"
		} else {
			names[i] = fmt.Sprintf("%q", q)
		}
	}
	return fmt.Sprintf("%s: %v: blocks %s all define install for this host",
		e.ID, ErrAmbiguousInstall, strings.Join(names, ", "))
}

// Unwrap returns ErrAmbiguousInstall.
func (e *AmbiguousInstallError) Unwrap() error {
	return ErrAmbiguousInstall
}
