package assembly

import (
	"reflect"

	"github.com/km-arc/go-assemble/framework/meta"
)

// ── Processor contract ────────────────────────────────────────────────────────

// Capability is a kind of program element a processor can act on.
type Capability int

const (
	SupportsTypes Capability = iota
	SupportsFields
	SupportsMethods
)

func (c Capability) String() string {
	switch c {
	case SupportsTypes:
		return "types"
	case SupportsFields:
		return "fields"
	case SupportsMethods:
		return "methods"
	default:
		return "unknown"
	}
}

// Processor reacts to exactly one marker type. What it can act on is
// expressed by implementing TypeProcessor, FieldProcessor and/or
// MethodProcessor; it may also hook the scan with BeforeScanner and
// AfterScanner.
//
//	type AuditProcessor struct{}
//
//	func (AuditProcessor) Marker() reflect.Type { return meta.MarkerOf[Audited]() }
//
//	func (AuditProcessor) ProcessMethod(m *meta.Method, inv assembly.Invocation) error {
//	    ...
//	}
type Processor interface {
	Marker() reflect.Type
}

// Invocation is what a processor receives alongside the element it processes.
type Invocation struct {
	// Marker is the marker value found on the element.
	Marker meta.Marker
	// Component is the instance owning the element.
	Component   any
	Context     *Context
	Initializer *Initializer
	Destroyer   *Destroyer
}

// TypeProcessor handles type-level markers.
type TypeProcessor interface {
	Processor
	ProcessType(t *meta.Type, inv Invocation) error
}

// FieldProcessor handles field-level markers.
type FieldProcessor interface {
	Processor
	ProcessField(f *meta.Field, inv Invocation) error
}

// MethodProcessor handles method-level markers.
type MethodProcessor interface {
	Processor
	ProcessMethod(m *meta.Method, inv Invocation) error
}

// BeforeScanner is called once the processor set is final, before regular
// components are scanned.
type BeforeScanner interface {
	BeforeScan(ini *Initializer) error
}

// AfterScanner is called after every regular component has been wired.
type AfterScanner interface {
	AfterScan(ini *Initializer, ctx *Context, d *Destroyer) error
}

// Described is implemented by components and processors that publish their
// own descriptor, so they can be wired without a scanner finding them.
type Described interface {
	Descriptor() *meta.Type
}

// Capabilities returns the capabilities p implements.
func Capabilities(p Processor) []Capability {
	var out []Capability
	if _, ok := p.(TypeProcessor); ok {
		out = append(out, SupportsTypes)
	}
	if _, ok := p.(FieldProcessor); ok {
		out = append(out, SupportsFields)
	}
	if _, ok := p.(MethodProcessor); ok {
		out = append(out, SupportsMethods)
	}
	return out
}

// ── Dispatch index ────────────────────────────────────────────────────────────

// pipeline indexes processors by (capability, marker) so dispatch during
// wiring is a direct lookup.
type pipeline struct {
	processors []Processor
	index      map[Capability]map[reflect.Type][]Processor
	seen       map[any]bool
}

func newPipeline() *pipeline {
	return &pipeline{
		index: make(map[Capability]map[reflect.Type][]Processor),
		seen:  make(map[any]bool),
	}
}

// add registers p. Registering the same comparable processor twice is a
// no-op.
func (p *pipeline) add(proc Processor) bool {
	if reflect.TypeOf(proc).Comparable() {
		if p.seen[proc] {
			return false
		}
		p.seen[proc] = true
	}
	p.processors = append(p.processors, proc)
	marker := proc.Marker()
	for _, c := range Capabilities(proc) {
		if p.index[c] == nil {
			p.index[c] = make(map[reflect.Type][]Processor)
		}
		p.index[c][marker] = append(p.index[c][marker], proc)
	}
	return true
}

func (p *pipeline) lookup(c Capability, marker reflect.Type) []Processor {
	return p.index[c][marker]
}

// markers returns the markers handled with capability c, in registration
// order.
func (p *pipeline) markers(c Capability) []reflect.Type {
	var out []reflect.Type
	seen := make(map[reflect.Type]bool)
	for _, proc := range p.processors {
		m := proc.Marker()
		if seen[m] || len(p.index[c][m]) == 0 {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// snapshot returns the processors in registration order.
func (p *pipeline) snapshot() []Processor {
	out := make([]Processor, len(p.processors))
	copy(out, p.processors)
	return out
}
