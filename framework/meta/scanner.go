package meta

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scanner finds the concrete component types under a root that carry any of
// the given type-level markers. Implementations may read a build-time table,
// a manifest, or anything else that yields constructible descriptors.
type Scanner interface {
	Scan(root reflect.Type, markers []reflect.Type) ([]*Type, error)
}

// Describer is implemented by scanners that can describe a single type under
// a root outside of a marker query.
type Describer interface {
	Describe(root, t reflect.Type) (*Type, bool)
}

// ── CatalogScanner ────────────────────────────────────────────────────────────

// CatalogScanner scans a Catalog. The root's package path is the namespace:
// types declared in that package or in any package nested under it match.
// A nil root matches every package.
type CatalogScanner struct {
	catalog *Catalog
}

// NewCatalogScanner creates a scanner over c.
func NewCatalogScanner(c *Catalog) *CatalogScanner {
	return &CatalogScanner{catalog: c}
}

// Scan returns matching descriptors in catalog order.
func (s *CatalogScanner) Scan(root reflect.Type, markers []reflect.Type) ([]*Type, error) {
	var out []*Type
	for _, t := range s.catalog.types {
		if t.Type.Kind() == reflect.Interface {
			continue
		}
		if root != nil && !InNamespace(t.Type, root) {
			continue
		}
		if t.HasAnyMarker(markers) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Describe returns the catalog descriptor of t when t lies under root.
func (s *CatalogScanner) Describe(root, t reflect.Type) (*Type, bool) {
	d, ok := s.catalog.Lookup(t)
	if !ok || t.Kind() == reflect.Interface {
		return nil, false
	}
	if root != nil && !InNamespace(t, root) {
		return nil, false
	}
	return d, true
}

// InNamespace reports whether t is declared in root's package or below it.
func InNamespace(t, root reflect.Type) bool {
	rp := PkgPath(root)
	tp := PkgPath(t)
	return tp == rp || strings.HasPrefix(tp, rp+"/")
}

// ── ManifestScanner ───────────────────────────────────────────────────────────

// Manifest is an explicit list of component type names, e.g.
//
//	components:
//	  - github.com/acme/app.Engine
//	  - github.com/acme/app.Wheels
//	exclude:
//	  - github.com/acme/app.DebugPanel
//
// An empty Components list admits every scanned type.
type Manifest struct {
	Components []string `yaml:"components"`
	Exclude    []string `yaml:"exclude"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("meta: parsing manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and decodes a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("meta: reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ManifestScanner restricts a CatalogScanner to the types a manifest names.
type ManifestScanner struct {
	inner    *CatalogScanner
	include  map[string]bool
	exclude  map[string]bool
	manifest *Manifest
}

// NewManifestScanner creates a scanner over c filtered by m.
func NewManifestScanner(c *Catalog, m *Manifest) *ManifestScanner {
	s := &ManifestScanner{
		inner:    NewCatalogScanner(c),
		include:  make(map[string]bool),
		exclude:  make(map[string]bool),
		manifest: m,
	}
	for _, name := range m.Components {
		s.include[name] = true
	}
	for _, name := range m.Exclude {
		s.exclude[name] = true
	}
	return s
}

// Scan returns the catalog matches admitted by the manifest. A manifest
// naming a type the catalog does not describe is an error.
func (s *ManifestScanner) Scan(root reflect.Type, markers []reflect.Type) ([]*Type, error) {
	known := make(map[string]bool, s.inner.catalog.Len())
	for _, t := range s.inner.catalog.types {
		known[t.Name()] = true
	}
	for _, name := range s.manifest.Components {
		if !known[name] {
			return nil, fmt.Errorf("meta: manifest lists unknown type %q", name)
		}
	}

	found, err := s.inner.Scan(root, markers)
	if err != nil {
		return nil, err
	}
	out := found[:0]
	for _, t := range found {
		if !s.admits(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Describe returns the catalog descriptor of t when the manifest admits it.
func (s *ManifestScanner) Describe(root, t reflect.Type) (*Type, bool) {
	d, ok := s.inner.Describe(root, t)
	if !ok || !s.admits(d) {
		return nil, false
	}
	return d, true
}

func (s *ManifestScanner) admits(t *Type) bool {
	name := t.Name()
	if s.exclude[name] {
		return false
	}
	return len(s.include) == 0 || s.include[name]
}
