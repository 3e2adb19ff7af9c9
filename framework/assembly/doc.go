// Package assembly builds an application's component graph from declarative
// descriptors and returns a ledger of cleanup actions.
//
// # Overview
//
// Components are plain Go types described once (see package meta) with
// markers: type markers such as markers.Component, field markers such as
// markers.Inject and method markers such as markers.Initiate. An
// Initializer scans one or more namespaces for marked types, constructs them
// with their declared constructors, resolving constructor parameters from
// the registry, and hands every marker to the processor registered for it.
// Processors do the actual wiring: injecting fields, calling initialization
// methods, recording cleanup actions.
//
// # Session Lifecycle
//
//  1. Setup: register scanners, manual components and processors
//  2. Meta phase: construct and wire processors and providers
//  3. Before-scan hooks
//  4. Regular phase: construct and wire components
//  5. After-scan hooks
//  6. Teardown: the registry and the processor index are dropped
//
// Only the *Destroyer returned by Initiate survives. Fire it at shutdown:
//
//	ini := assembly.New(assembly.WithLogger(logger))
//	processors.Install(ini)
//	ini.AddScanner(reflect.TypeFor[*demo.Store](), meta.NewCatalogScanner(demo.Catalog()))
//
//	destroyer, err := ini.Initiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer destroyer.Fire()
//
// # Construction
//
// A type with one constructor uses it. With several, the zero-argument one
// wins; otherwise the first declared is used and a warning is logged, or
// AmbiguousConstructorError is returned under WithStrictConstructors.
// Pointer-to-struct types without constructors are built from their zero
// value.
//
// Constructors may depend on each other in any declaration order. Each pass
// constructs whatever is ready; a pass that makes no progress repeats until
// the iteration limit, after which CircularOrMissingDependencyError lists the
// stuck constructors. A parameter no candidate can ever produce fails
// immediately with UnresolvedDependencyError unless it can be auto-created.
//
// # Registry
//
// Instances are indexed under their concrete type and every ancestor of its
// descriptor, so a lookup by interface finds every implementation:
//
//	engines := assembly.All[Engine](ctx)        // never fails
//	store, err := assembly.Get[*Store](ctx)     // exactly one, else error
//
// # Processors
//
// A processor binds to one marker type and implements any of TypeProcessor,
// FieldProcessor and MethodProcessor. Within a batch all type markers are
// processed before any field marker, and all field markers before any method
// marker, so a method marker always sees fully injected fields.
package assembly
