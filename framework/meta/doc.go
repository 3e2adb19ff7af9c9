// Package meta holds the capability descriptors the assembly runtime works
// from.
//
// Go has no annotations and no class hierarchy, so every component type
// publishes a descriptor instead: its constructors, the markers attached to
// the type, and the exported fields and methods that carry markers. Parent
// links between descriptors form an explicit type hierarchy table, used to
// index one instance under every type it should be reachable by.
//
// # Describing types
//
//	catalog := markers.NewCatalog()
//	catalog.MustAdd(
//	    meta.Describe[*Wheels]().Mark(markers.Component{}),
//	    meta.Describe[*Engine]().
//	        Mark(markers.Component{}).
//	        Constructor(NewEngine).
//	        Method("Start", markers.Initiate{Priority: 10}),
//	)
//
// Field markers can also be declared with the `assemble` struct tag; the
// directives understood depend on the catalog's tag vocabulary.
//
// # Scanning
//
// A Scanner returns the descriptors under a root carrying given markers.
// CatalogScanner treats the root's package path as the namespace;
// ManifestScanner narrows that to the type names listed in a YAML manifest.
package meta
