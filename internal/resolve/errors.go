package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedDependency is returned when a required artifact cannot be found.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrCyclicDependency is returned when requires edges lead back to an
	// artifact still being resolved.
	ErrCyclicDependency = errors.New("cyclic dependency")
)

// UnresolvedDependencyError names the requirement that could not be met.
// Err is the lookup failure, or nil when the artifact was simply absent.
type UnresolvedDependencyError struct {
	ID        string
	Range     string
	Requester string
	Err       error
}

func (e *UnresolvedDependencyError) Error() string {
	r := e.Range
	if r == "" {
		r = "*"
	}
	msg := fmt.Sprintf("%s: %v: %s %s", e.Requester, ErrUnresolvedDependency, e.ID, r)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrUnresolvedDependency and the lookup failure.
func (e *UnresolvedDependencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvedDependency}
	}
	return []error{ErrUnresolvedDependency, e.Err}
}

// CyclicDependencyError carries the requires path that closes the cycle.
// The first and last elements name the same artifact.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCyclicDependency.
func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}
