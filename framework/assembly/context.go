package assembly

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/meta"
)

// ── Provider ──────────────────────────────────────────────────────────────────

// Provider is a factory consulted when no component instance satisfies a
// lookup. It is indexed under the provided type and all of its ancestors.
type Provider interface {
	Provides() reflect.Type
	Provide(ctx *Context) (any, error)
}

// ProviderFunc adapts a function to a Provider of T.
//
//	ctx.RegisterProvider(assembly.ProviderFunc(func(c *assembly.Context) (*sql.DB, error) {
//	    return sql.Open("sqlite", ":memory:")
//	}))
func ProviderFunc[T any](fn func(ctx *Context) (T, error)) Provider {
	return providerFunc[T](fn)
}

type providerFunc[T any] func(ctx *Context) (T, error)

func (f providerFunc[T]) Provides() reflect.Type { return reflect.TypeFor[T]() }

func (f providerFunc[T]) Provide(ctx *Context) (any, error) { return f(ctx) }

// ── Context ───────────────────────────────────────────────────────────────────

// Context is the component registry of one assembly session: a lookup table
// from a type (and every ancestor it was registered under) to the instances
// of that type, plus a parallel table of providers.
//
// A Context is scaffolding. The Initializer clears it once assembly is over
// unless it was told to retain it. It is not safe for concurrent use.
type Context struct {
	// type → instances, in registration order
	components map[reflect.Type][]any

	// type → providers, in registration order
	providers map[reflect.Type][]Provider

	// concrete type → descriptor, for ancestor walks and auto-creation
	hierarchy map[reflect.Type]*meta.Type

	// auto-created type → instance
	created map[reflect.Type]any

	// consulted for types the registry cannot describe itself
	describer func(reflect.Type) (*meta.Type, bool)

	createMissing bool
	retain        bool
	logger        *zap.Logger
}

// NewContext creates an empty registry with auto-creation enabled.
func NewContext() *Context {
	return &Context{
		components:    make(map[reflect.Type][]any),
		providers:     make(map[reflect.Type][]Provider),
		hierarchy:     make(map[reflect.Type]*meta.Type),
		created:       make(map[reflect.Type]any),
		createMissing: true,
		logger:        zap.NewNop(),
	}
}

// SetCreateMissingDependencies toggles auto-creation of unknown types through
// their zero-argument constructor.
func (c *Context) SetCreateMissingDependencies(enabled bool) { c.createMissing = enabled }

// SetDescriber installs a lookup used before auto-creating a type, so a type
// some scanner describes is built through its own constructor.
func (c *Context) SetDescriber(fn func(reflect.Type) (*meta.Type, bool)) { c.describer = fn }

// SetRetain makes Clear a no-op, keeping the registry usable after assembly.
func (c *Context) SetRetain(retain bool) { c.retain = retain }

// SetLogger sets the logger used for registry diagnostics.
func (c *Context) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Describe makes a descriptor (and its ancestors) known to the registry so
// instances of its type are indexed under every ancestor. t always becomes
// the descriptor of its own type; ancestors reached through parent links
// only fill in types nothing described yet.
func (c *Context) Describe(t *meta.Type) {
	if prev, ok := c.hierarchy[t.Type]; ok && prev != t {
		c.logger.Debug("descriptor replaced", zap.Stringer("type", t.Type))
	}
	if !meta.IsUniversal(t.Type) {
		c.hierarchy[t.Type] = t
	}
	for _, a := range t.Ancestors() {
		if _, ok := c.hierarchy[a.Type]; !ok {
			c.hierarchy[a.Type] = a
		}
	}
}

// Descriptor returns the known descriptor for t.
func (c *Context) Descriptor(t reflect.Type) (*meta.Type, bool) {
	d, ok := c.hierarchy[t]
	return d, ok
}

// Lineage returns the ancestors of d, each replaced by the descriptor the
// registry holds for its type. Every type appears once.
func (c *Context) Lineage(d *meta.Type) []*meta.Type {
	var out []*meta.Type
	seen := make(map[reflect.Type]bool)
	for _, a := range d.Ancestors() {
		if seen[a.Type] {
			continue
		}
		seen[a.Type] = true
		if known, ok := c.hierarchy[a.Type]; ok {
			a = known
		}
		out = append(out, a)
	}
	return out
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register appends instance under t only. Supertypes are not walked.
func (c *Context) Register(t reflect.Type, instance any) {
	if meta.IsUniversal(t) {
		return
	}
	c.components[t] = append(c.components[t], instance)
}

// RegisterByHierarchy appends instance under its concrete type and every
// ancestor the descriptor table knows of, excluding the universal base.
func (c *Context) RegisterByHierarchy(instance any) {
	for _, t := range c.ancestry(reflect.TypeOf(instance)) {
		c.Register(t, instance)
	}
}

// RegisterProvider indexes p under its provided type and that type's
// ancestors.
func (c *Context) RegisterProvider(p Provider) {
	for _, t := range c.ancestry(p.Provides()) {
		if meta.IsUniversal(t) {
			continue
		}
		c.providers[t] = append(c.providers[t], p)
	}
}

func (c *Context) ancestry(t reflect.Type) []reflect.Type {
	if d, ok := c.hierarchy[t]; ok {
		return d.AncestorTypes()
	}
	return []reflect.Type{t}
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Has reports whether at least one instance is registered under t.
func (c *Context) Has(t reflect.Type) bool { return len(c.components[t]) > 0 }

// HasProvider reports whether at least one provider is registered for t.
func (c *Context) HasProvider(t reflect.Type) bool { return len(c.providers[t]) > 0 }

// CanResolve reports whether t is registered or provided. Ambiguous
// registrations count as resolvable; Resolve reports the ambiguity.
func (c *Context) CanResolve(t reflect.Type) bool { return c.Has(t) || c.HasProvider(t) }

// GetOne returns the single instance registered under t. Zero or several
// instances is an *AmbiguousComponentError.
func (c *Context) GetOne(t reflect.Type) (any, error) {
	instances := c.components[t]
	if len(instances) != 1 {
		return nil, &AmbiguousComponentError{Type: t, Count: len(instances)}
	}
	return instances[0], nil
}

// GetAll returns every instance registered under t. It never fails.
func (c *Context) GetAll(t reflect.Type) []any {
	out := make([]any, len(c.components[t]))
	copy(out, c.components[t])
	return out
}

// Resolve returns an instance of t: the single registered instance, else the
// product of the single registered provider, else (when enabled) a newly
// auto-created instance.
func (c *Context) Resolve(t reflect.Type) (any, error) {
	switch instances := c.components[t]; len(instances) {
	case 0:
	case 1:
		return instances[0], nil
	default:
		return nil, &AmbiguousComponentError{Type: t, Count: len(instances)}
	}

	switch providers := c.providers[t]; len(providers) {
	case 0:
	case 1:
		instance, err := providers[0].Provide(c)
		if err != nil {
			return nil, fmt.Errorf("assembly: providing %s: %w", t, err)
		}
		return instance, nil
	default:
		return nil, &AmbiguousComponentError{Type: t, Count: len(providers), Provider: true}
	}

	if !c.createMissing {
		return nil, &UnresolvedDependencyError{Type: t}
	}
	return c.create(t)
}

// ResolveArgs resolves each type in order.
func (c *Context) ResolveArgs(types []reflect.Type) ([]any, error) {
	args := make([]any, len(types))
	for i, t := range types {
		arg, err := c.Resolve(t)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

// CanCreate reports whether t could be auto-created: it has a described
// zero-argument constructor, or is a pointer to a struct.
func (c *Context) CanCreate(t reflect.Type) bool {
	_, ok := c.zeroConstructor(t)
	return ok
}

func (c *Context) zeroConstructor(t reflect.Type) (*meta.Constructor, bool) {
	if c.describer != nil {
		if d, ok := c.describer(t); ok && d.Type == t && d != c.hierarchy[t] {
			c.Describe(d)
		}
	}
	if d, ok := c.hierarchy[t]; ok && d.Type == t {
		for _, ctor := range d.Constructors {
			if len(ctor.Params) == 0 {
				return ctor, true
			}
		}
		if len(d.Constructors) > 0 {
			return nil, false
		}
	}
	return meta.ZeroValueConstructor(t)
}

// create builds a missing dependency and registers it, so the rest of the
// session shares the same instance.
func (c *Context) create(t reflect.Type) (any, error) {
	ctor, ok := c.zeroConstructor(t)
	if !ok {
		return nil, &UnresolvedDependencyError{Type: t}
	}
	instance, err := ctor.Invoke(nil)
	if err != nil {
		return nil, fmt.Errorf("assembly: creating missing %s: %w", t, err)
	}
	c.logger.Debug("created missing dependency", zap.Stringer("type", t))
	c.RegisterByHierarchy(instance)
	c.created[reflect.TypeOf(instance)] = instance
	return instance, nil
}

// Created returns the instance auto-created for the concrete type t.
func (c *Context) Created(t reflect.Type) (any, bool) {
	instance, ok := c.created[t]
	return instance, ok
}

// Types returns every type with at least one registered instance.
func (c *Context) Types() []reflect.Type {
	out := make([]reflect.Type, 0, len(c.components))
	for t := range c.components {
		out = append(out, t)
	}
	return out
}

// Clear drops all registry content unless the registry is retained.
func (c *Context) Clear() {
	if c.retain {
		return
	}
	c.components = make(map[reflect.Type][]any)
	c.providers = make(map[reflect.Type][]Provider)
	c.hierarchy = make(map[reflect.Type]*meta.Type)
	c.created = make(map[reflect.Type]any)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Get resolves T from ctx and type-asserts the result.
//
//	engine, err := assembly.Get[*Engine](ctx)
func Get[T any](ctx *Context) (T, error) {
	var zero T
	instance, err := ctx.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("assembly: Get[%s]: resolved to %T", reflect.TypeFor[T](), instance)
	}
	return typed, nil
}

// MustGet is like Get but panics on error.
func MustGet[T any](ctx *Context) T {
	v, err := Get[T](ctx)
	if err != nil {
		panic(err)
	}
	return v
}

// All returns every instance registered under T.
func All[T any](ctx *Context) []T {
	instances := ctx.GetAll(reflect.TypeFor[T]())
	out := make([]T, 0, len(instances))
	for _, i := range instances {
		if typed, ok := i.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
