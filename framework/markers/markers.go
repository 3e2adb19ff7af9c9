// Package markers is the default marker vocabulary recognised by the
// processors in framework/processors.
//
// The vocabulary is open: any value can be a marker, and callers register
// processors for their own markers before the session starts.
package markers

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/km-arc/go-assemble/framework/meta"
)

// Component marks a type as a component to be scanned and constructed.
type Component struct{}

// Processor marks a type as a processor. Processor types are constructed and
// wired in the meta phase, before regular components are scanned.
type Processor struct{}

// Provider marks a type as a factory for another type. Providers are wired in
// the meta phase so that regular constructors can depend on what they provide.
type Provider struct{}

// Inject marks a field to be assigned from the component registry.
//
// Type overrides the lookup type (defaults to the field type, or its element
// type when All is set). All injects every registered instance into a slice
// field.
type Inject struct {
	Type reflect.Type
	All  bool
}

// Initiate marks a method to be invoked once assembly is complete. Higher
// priorities run first; equal priorities run in discovery order. Method
// parameters are resolved from the registry.
type Initiate struct {
	Priority int
}

// Destroy marks a method to be invoked when the destruction ledger fires.
// Higher priorities run first. Method parameters are resolved at assembly
// time.
type Destroy struct {
	Priority int
}

// Dispose marks a field, or a whole component, whose Dispose or Close method
// must run when the destruction ledger fires.
type Dispose struct{}

// OnEvent marks a method (or a component implementing events.Listener) as a
// listener for events of type Event. For methods Event may be left nil and is
// inferred from the single parameter. RemoveAfter detaches the listener after
// its first invocation.
type OnEvent struct {
	Event       reflect.Type
	RemoveAfter bool
}

// OnMessage marks a method (or a component implementing
// events.MessageListener) as a listener for a string message.
type OnMessage struct {
	Message     string
	RemoveAfter bool
}

// Meta returns the markers scanned in the meta phase.
func Meta() []reflect.Type {
	return []reflect.Type{
		meta.MarkerOf[Processor](),
		meta.MarkerOf[Provider](),
	}
}

// ── Tag vocabulary ────────────────────────────────────────────────────────────

// NewCatalog returns a catalog that understands the default struct-tag
// directives.
func NewCatalog() *meta.Catalog {
	c := meta.NewCatalog()
	RegisterTags(c)
	return c
}

// RegisterTags installs the default directives into c:
//
//	`assemble:"inject"`      → Inject{}
//	`assemble:"inject,all"`  → Inject{All: true}
//	`assemble:"dispose"`     → Dispose{}
func RegisterTags(c *meta.Catalog) {
	c.RegisterTag("inject", parseInject)
	c.RegisterTag("dispose", parseDispose)
}

func parseInject(field reflect.StructField, options []string) (meta.Marker, error) {
	var m Inject
	for _, opt := range options {
		switch opt {
		case "all":
			if field.Type.Kind() != reflect.Slice {
				return nil, fmt.Errorf("inject,all requires a slice field, got %s", field.Type)
			}
			m.All = true
		default:
			return nil, fmt.Errorf("unknown inject option %q", opt)
		}
	}
	return m, nil
}

func parseDispose(_ reflect.StructField, options []string) (meta.Marker, error) {
	if len(options) > 0 {
		return nil, fmt.Errorf("dispose takes no options, got %s", strconv.Quote(options[0]))
	}
	return Dispose{}, nil
}
