package assembly

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors.
var (
	// ErrNoScannersConfigured is returned when a session starts without any
	// scanning root.
	ErrNoScannersConfigured = errors.New("assembly: no scanners configured")

	// ErrAlreadyInitiated is returned when Initiate is called on a spent
	// Initializer.
	ErrAlreadyInitiated = errors.New("assembly: initializer already used")
)

// UnresolvableConstructorError reports a candidate type that cannot be
// constructed at all.
type UnresolvableConstructorError struct {
	Type reflect.Type
}

func (e *UnresolvableConstructorError) Error() string {
	return fmt.Sprintf("assembly: %s has no usable constructor", e.Type)
}

// AmbiguousConstructorError reports a type with several constructors and no
// zero-argument one, when strict constructor selection is enabled.
type AmbiguousConstructorError struct {
	Type  reflect.Type
	Count int
}

func (e *AmbiguousConstructorError) Error() string {
	return fmt.Sprintf("assembly: %s declares %d constructors and none takes no arguments", e.Type, e.Count)
}

// CircularOrMissingDependencyError reports constructions still pending after
// the iteration limit was reached.
type CircularOrMissingDependencyError struct {
	// Pending lists the stuck constructors.
	Pending    []string
	Iterations int
}

func (e *CircularOrMissingDependencyError) Error() string {
	return fmt.Sprintf("assembly: circular or missing constructor dependencies after %d passes: %s",
		e.Iterations, strings.Join(e.Pending, "; "))
}

// AmbiguousComponentError reports a single-instance lookup that matched zero
// or several instances (or providers).
type AmbiguousComponentError struct {
	Type     reflect.Type
	Count    int
	Provider bool
}

func (e *AmbiguousComponentError) Error() string {
	what := "components"
	if e.Provider {
		what = "providers"
	}
	if e.Count == 0 {
		return fmt.Sprintf("assembly: no %s registered for %s", what, e.Type)
	}
	return fmt.Sprintf("assembly: %d %s registered for %s, use a more specific type", e.Count, what, e.Type)
}

// UnresolvedDependencyError reports a lookup that matched nothing while
// auto-creation was disabled or impossible.
type UnresolvedDependencyError struct {
	Type reflect.Type
	// RequiredBy names the component that needed Type, when known.
	RequiredBy string
}

func (e *UnresolvedDependencyError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("assembly: unresolved dependency %s required by %s", e.Type, e.RequiredBy)
	}
	return fmt.Sprintf("assembly: unresolved dependency %s", e.Type)
}

// ProcessorError wraps a failure raised by a processor during wiring or in
// one of its scan hooks.
type ProcessorError struct {
	Processor string
	Element   string
	Err       error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("assembly: processor %s failed on %s: %v", e.Processor, e.Element, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
