package meta

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// ── Markers ───────────────────────────────────────────────────────────────────

// Marker is a declarative tag attached to a type, field or method.
//
// Any value can be a marker. Its dynamic type identifies it and the value
// itself carries the marker's data:
//
//	type Cached struct{ TTL time.Duration }
//	meta.Describe[*Repo]().Mark(Cached{TTL: time.Minute})
type Marker any

// MarkerType returns the identifier of m.
func MarkerType(m Marker) reflect.Type { return reflect.TypeOf(m) }

// MarkerOf returns the identifier of markers of type M.
//
//	meta.MarkerOf[markers.Inject]()
func MarkerOf[M any]() reflect.Type { return reflect.TypeFor[M]() }

var anyType = reflect.TypeFor[any]()

// IsUniversal reports whether t is the universal base type, which is never
// used as a lookup key.
func IsUniversal(t reflect.Type) bool { return t == nil || t == anyType }

// ── Type descriptor ───────────────────────────────────────────────────────────

// Type is the capability descriptor of a component type: its constructors,
// its markers and its marker-carrying members.
//
// Descriptors form an arena with explicit parent links. A parent is anything
// the type should also be indexed under: an embedded base struct, or an
// interface it implements.
//
//	base   := meta.Describe[*Vehicle]().Field("Log", markers.Inject{})
//	engine := meta.Describe[*Engine]().
//	    Extends(base, meta.Interface[Startable]()).
//	    Mark(markers.Component{}).
//	    Constructor(NewEngine)
type Type struct {
	Type         reflect.Type
	Parents      []*Type
	Markers      []Marker
	Constructors []*Constructor
	Fields       []*Field
	Methods      []*Method
}

// Describe starts a descriptor for T. T is normally a pointer to a struct.
func Describe[T any]() *Type { return Of(reflect.TypeFor[T]()) }

// Interface starts a descriptor for the interface type T.
// It panics when T is not an interface.
func Interface[T any]() *Type {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("meta: Interface[%s]: not an interface type", t))
	}
	return Of(t)
}

// Of starts a descriptor for t.
func Of(t reflect.Type) *Type {
	if t == nil {
		panic("meta: cannot describe a nil type")
	}
	return &Type{Type: t}
}

// Name returns the package-qualified name of the described type with any
// pointer indirection removed, e.g. "github.com/acme/app.Engine".
func (t *Type) Name() string { return TypeName(t.Type) }

func (t *Type) String() string { return t.Type.String() }

// Extends links parent descriptors.
func (t *Type) Extends(parents ...*Type) *Type {
	for _, p := range parents {
		if p == nil || p == t {
			panic(fmt.Sprintf("meta: %s: invalid parent", t))
		}
	}
	t.Parents = append(t.Parents, parents...)
	return t
}

// Mark attaches type-level markers.
func (t *Type) Mark(markers ...Marker) *Type {
	t.Markers = append(t.Markers, markers...)
	return t
}

// Constructor registers a constructor function. fn must be a non-variadic
// function returning the described type, or the described type and an error.
func (t *Type) Constructor(fn any) *Type {
	c, err := newConstructor(t.Type, reflect.ValueOf(fn))
	if err != nil {
		panic(fmt.Sprintf("meta: %s: %v", t, err))
	}
	t.Constructors = append(t.Constructors, c)
	return t
}

// Field attaches markers to the exported struct field called name.
// Markers accumulate when the same field is declared more than once.
func (t *Type) Field(name string, markers ...Marker) *Type {
	if f := t.field(name); f != nil {
		f.Markers = append(f.Markers, markers...)
		return t
	}
	st, ok := structOf(t.Type)
	if !ok {
		panic(fmt.Sprintf("meta: %s: fields can only be declared on struct types", t))
	}
	sf, ok := st.FieldByName(name)
	if !ok || !sf.IsExported() {
		panic(fmt.Sprintf("meta: %s has no exported field %q", t, name))
	}
	t.Fields = append(t.Fields, &Field{
		Owner:   t,
		Name:    name,
		Type:    sf.Type,
		Markers: markers,
	})
	return t
}

// Method attaches markers to the exported method called name.
func (t *Type) Method(name string, markers ...Marker) *Type {
	for _, m := range t.Methods {
		if m.Name == name {
			m.Markers = append(m.Markers, markers...)
			return t
		}
	}
	if _, ok := t.Type.MethodByName(name); !ok {
		panic(fmt.Sprintf("meta: %s has no exported method %q", t, name))
	}
	t.Methods = append(t.Methods, &Method{Owner: t, Name: name, Markers: markers})
	return t
}

func (t *Type) field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Ancestors returns t followed by every transitive parent, depth-first in
// declaration order, without duplicates.
func (t *Type) Ancestors() []*Type {
	var out []*Type
	seen := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(n *Type) {
		if seen[n] || IsUniversal(n.Type) {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, p := range n.Parents {
			walk(p)
		}
	}
	walk(t)
	return out
}

// AncestorTypes returns the reflect types of Ancestors.
func (t *Type) AncestorTypes() []reflect.Type {
	ancestors := t.Ancestors()
	out := make([]reflect.Type, 0, len(ancestors))
	for _, a := range ancestors {
		out = append(out, a.Type)
	}
	return out
}

// HasMarker reports whether a type-level marker identified by mt is attached.
func (t *Type) HasMarker(mt reflect.Type) bool {
	for _, m := range t.Markers {
		if MarkerType(m) == mt {
			return true
		}
	}
	return false
}

// HasAnyMarker reports whether any of the given type-level markers is attached.
func (t *Type) HasAnyMarker(types []reflect.Type) bool {
	for _, mt := range types {
		if t.HasMarker(mt) {
			return true
		}
	}
	return false
}

// ── Constructor ───────────────────────────────────────────────────────────────

// Constructor is a function producing an instance of its owner type.
type Constructor struct {
	Fn     reflect.Value
	Params []reflect.Type
	name   string
	errOut bool
}

var errorType = reflect.TypeFor[error]()

func newConstructor(owner reflect.Type, fn reflect.Value) (*Constructor, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("constructor must be a function, got %v", fn.Kind())
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("constructor %s must not be variadic", ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("constructor %s must return (%s) or (%s, error)", ft, owner, owner)
	}
	if !ft.Out(0).AssignableTo(owner) {
		return nil, fmt.Errorf("constructor %s does not return %s", ft, owner)
	}
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	name := ft.String()
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		name = f.Name()
	}
	return &Constructor{Fn: fn, Params: params, name: name, errOut: ft.NumOut() == 2}, nil
}

// ZeroValueConstructor returns the implicit constructor of a pointer-to-struct
// type, which allocates a zero value. Other kinds have no implicit constructor.
func ZeroValueConstructor(t reflect.Type) (*Constructor, bool) {
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	elem := t.Elem()
	fn := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{t}, false), func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.New(elem)}
	})
	return &Constructor{Fn: fn, name: "new(" + elem.String() + ")"}, true
}

// Invoke calls the constructor with already-resolved arguments.
func (c *Constructor) Invoke(args []any) (any, error) {
	if len(args) != len(c.Params) {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", c, len(c.Params), len(args))
	}
	in, err := values(c.Params, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	out := c.Fn.Call(in)
	if c.errOut && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (c *Constructor) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.String()
	}
	return c.name + "(" + strings.Join(params, ", ") + ")"
}

// ── Field ─────────────────────────────────────────────────────────────────────

// Field is a marker-carrying exported struct field.
type Field struct {
	Owner   *Type
	Name    string
	Type    reflect.Type
	Markers []Marker
}

func (f *Field) String() string { return f.Owner.Name() + "." + f.Name }

// value returns the settable field of component. Fields declared on a parent
// descriptor are reached through Go's field promotion.
func (f *Field) value(component any) (reflect.Value, error) {
	v := reflect.ValueOf(component)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("field %s: nil component", f)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("field %s: %s is not a struct", f, v.Type())
	}
	sf, ok := v.Type().FieldByName(f.Name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("field %s: not found on %s", f, v.Type())
	}
	fv, err := v.FieldByIndexErr(sf.Index)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("field %s: %w", f, err)
	}
	return fv, nil
}

// Get returns the current value of the field on component.
func (f *Field) Get(component any) (any, error) {
	fv, err := f.value(component)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

// Set assigns value to the field on component, which must be addressable
// (i.e. a pointer).
func (f *Field) Set(component any, value any) error {
	fv, err := f.value(component)
	if err != nil {
		return err
	}
	if !fv.CanSet() {
		return fmt.Errorf("field %s: not settable on %T", f, component)
	}
	if value == nil {
		fv.SetZero()
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(fv.Type()) {
		return fmt.Errorf("field %s: cannot assign %s to %s", f, rv.Type(), fv.Type())
	}
	fv.Set(rv)
	return nil
}

// ── Method ────────────────────────────────────────────────────────────────────

// Method is a marker-carrying exported method.
type Method struct {
	Owner   *Type
	Name    string
	Markers []Marker
}

func (m *Method) String() string { return m.Owner.Name() + "." + m.Name }

// Bind returns the method value of component.
func (m *Method) Bind(component any) (reflect.Value, error) {
	fn := reflect.ValueOf(component).MethodByName(m.Name)
	if !fn.IsValid() {
		return reflect.Value{}, fmt.Errorf("method %s: not found on %T", m, component)
	}
	return fn, nil
}

// Params returns the parameter types of the method bound to component.
func (m *Method) Params(component any) ([]reflect.Type, error) {
	fn, err := m.Bind(component)
	if err != nil {
		return nil, err
	}
	ft := fn.Type()
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return params, nil
}

// Invoke calls the method on component. When the method's last result is a
// non-nil error it is returned; the remaining results are returned as-is.
func (m *Method) Invoke(component any, args ...any) ([]any, error) {
	fn, err := m.Bind(component)
	if err != nil {
		return nil, err
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("method %s: variadic methods are not supported", m)
	}
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	if len(args) != len(params) {
		return nil, fmt.Errorf("method %s: want %d arguments, got %d", m, len(params), len(args))
	}
	in, err := values(params, args)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", m, err)
	}
	out := fn.Call(in)
	results := make([]any, 0, len(out))
	for i, o := range out {
		if i == len(out)-1 && ft.Out(i) == errorType {
			if !o.IsNil() {
				return results, o.Interface().(error)
			}
			continue
		}
		results = append(results, o.Interface())
	}
	return results, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// TypeName returns the package-qualified name of t without pointer
// indirection. Unnamed types fall back to their string form.
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// PkgPath returns the package path of t without pointer indirection.
func PkgPath(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath()
}

func structOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

func values(params []reflect.Type, args []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(params[i])
			continue
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(params[i]) {
			return nil, fmt.Errorf("argument %d: cannot use %s as %s", i, v.Type(), params[i])
		}
		in[i] = v
	}
	return in, nil
}
