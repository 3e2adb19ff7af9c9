package meta

import (
	"fmt"
	"reflect"
	"strings"
)

// TagKey is the struct tag read by Catalog.Add.
//
//	type Controller struct {
//	    Store *Store `assemble:"inject"`
//	    Conn  *Conn  `assemble:"inject;dispose"`
//	}
const TagKey = "assemble"

// TagParser turns one struct-tag directive into a marker. options holds the
// comma-separated words following the directive name.
type TagParser func(field reflect.StructField, options []string) (Marker, error)

// Catalog is an ordered arena of type descriptors. It is the static type
// hierarchy table consulted by scanners and by the component registry.
type Catalog struct {
	types  []*Type
	byType map[reflect.Type]*Type
	tags   map[string]TagParser
}

// NewCatalog creates an empty catalog with no tag vocabulary.
func NewCatalog() *Catalog {
	return &Catalog{
		byType: make(map[reflect.Type]*Type),
		tags:   make(map[string]TagParser),
	}
}

// RegisterTag adds a struct-tag directive to the catalog's vocabulary.
// Directives registered later replace earlier ones with the same name.
func (c *Catalog) RegisterTag(name string, parser TagParser) {
	c.tags[name] = parser
}

// Add appends descriptors to the catalog. Struct tags of each descriptor's
// own fields are parsed into field markers. Adding the same type twice is an
// error.
func (c *Catalog) Add(types ...*Type) error {
	for _, t := range types {
		if t == nil {
			return fmt.Errorf("meta: nil descriptor")
		}
		if _, dup := c.byType[t.Type]; dup {
			return fmt.Errorf("meta: %s is already described", t)
		}
		if err := c.parseTags(t); err != nil {
			return err
		}
		c.types = append(c.types, t)
		c.byType[t.Type] = t
	}
	return nil
}

// MustAdd is like Add but panics on error. Intended for package-level catalog
// construction.
func (c *Catalog) MustAdd(types ...*Type) *Catalog {
	if err := c.Add(types...); err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the descriptor of t, if any.
func (c *Catalog) Lookup(t reflect.Type) (*Type, bool) {
	d, ok := c.byType[t]
	return d, ok
}

// Types returns every descriptor in the order it was added.
func (c *Catalog) Types() []*Type {
	out := make([]*Type, len(c.types))
	copy(out, c.types)
	return out
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int { return len(c.types) }

func (c *Catalog) parseTags(t *Type) error {
	st, ok := structOf(t.Type)
	if !ok {
		return nil
	}
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		tag, ok := sf.Tag.Lookup(TagKey)
		if !ok || sf.Anonymous {
			continue
		}
		if !sf.IsExported() {
			return fmt.Errorf("meta: %s.%s: tagged field must be exported", t.Name(), sf.Name)
		}
		for _, directive := range strings.Split(tag, ";") {
			directive = strings.TrimSpace(directive)
			if directive == "" {
				continue
			}
			words := strings.Split(directive, ",")
			name := strings.TrimSpace(words[0])
			parser, ok := c.tags[name]
			if !ok {
				return fmt.Errorf("meta: %s.%s: unknown %s directive %q", t.Name(), sf.Name, TagKey, name)
			}
			options := make([]string, 0, len(words)-1)
			for _, w := range words[1:] {
				if w = strings.TrimSpace(w); w != "" {
					options = append(options, w)
				}
			}
			m, err := parser(sf, options)
			if err != nil {
				return fmt.Errorf("meta: %s.%s: %w", t.Name(), sf.Name, err)
			}
			t.Field(sf.Name, m)
		}
	}
	return nil
}
