package processors

import (
	"cmp"
	"fmt"
	"io"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
)

type call struct {
	component any
	method    *meta.Method
	priority  int
	args      []any
}

// byPriority sorts calls highest priority first, keeping discovery order
// among equals.
func byPriority(calls []call) {
	slices.SortStableFunc(calls, func(a, b call) int { return cmp.Compare(b.priority, a.priority) })
}

// ── Initiate ──────────────────────────────────────────────────────────────────

// InitiateProcessor calls methods marked Initiate once every component has
// been wired. Parameters are resolved from the registry at call time.
type InitiateProcessor struct {
	calls []call
}

func (*InitiateProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Initiate]() }

func (p *InitiateProcessor) ProcessMethod(m *meta.Method, inv assembly.Invocation) error {
	p.calls = append(p.calls, call{
		component: inv.Component,
		method:    m,
		priority:  inv.Marker.(markers.Initiate).Priority,
	})
	return nil
}

func (p *InitiateProcessor) AfterScan(ini *assembly.Initializer, ctx *assembly.Context, _ *assembly.Destroyer) error {
	calls := p.calls
	p.calls = nil
	byPriority(calls)

	for _, c := range calls {
		params, err := c.method.Params(c.component)
		if err != nil {
			return err
		}
		args, err := ctx.ResolveArgs(params)
		if err != nil {
			return fmt.Errorf("initiating %s: %w", c.method, err)
		}
		if _, err := c.method.Invoke(c.component, args...); err != nil {
			return fmt.Errorf("initiating %s: %w", c.method, err)
		}
		ini.Logger().Debug("component initiated",
			zap.Stringer("method", c.method),
			zap.Int("priority", c.priority),
		)
	}
	return nil
}

// ── Destroy ───────────────────────────────────────────────────────────────────

// DestroyProcessor records methods marked Destroy in the destruction ledger.
// Parameters are resolved during assembly, while the registry still exists.
type DestroyProcessor struct {
	calls []call
}

func (*DestroyProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Destroy]() }

func (p *DestroyProcessor) ProcessMethod(m *meta.Method, inv assembly.Invocation) error {
	params, err := m.Params(inv.Component)
	if err != nil {
		return err
	}
	args, err := inv.Context.ResolveArgs(params)
	if err != nil {
		return err
	}
	p.calls = append(p.calls, call{
		component: inv.Component,
		method:    m,
		priority:  inv.Marker.(markers.Destroy).Priority,
		args:      args,
	})
	return nil
}

func (p *DestroyProcessor) AfterScan(_ *assembly.Initializer, _ *assembly.Context, d *assembly.Destroyer) error {
	calls := p.calls
	p.calls = nil
	byPriority(calls)

	for _, c := range calls {
		d.AddAction(func() error {
			if _, err := c.method.Invoke(c.component, c.args...); err != nil {
				return fmt.Errorf("destroying %s: %w", c.method, err)
			}
			return nil
		})
	}
	return nil
}

// ── Dispose ───────────────────────────────────────────────────────────────────

type disposer interface{ Dispose() }

type failingDisposer interface{ Dispose() error }

var disposableTypes = []reflect.Type{
	reflect.TypeFor[disposer](),
	reflect.TypeFor[failingDisposer](),
	reflect.TypeFor[io.Closer](),
}

// disposal returns the cleanup function of v: Dispose, or Close.
func disposal(v any) (func() error, bool) {
	switch x := v.(type) {
	case failingDisposer:
		return x.Dispose, true
	case disposer:
		return func() error { x.Dispose(); return nil }, true
	case io.Closer:
		return x.Close, true
	}
	return nil, false
}

func disposable(t reflect.Type) bool {
	for _, d := range disposableTypes {
		if t.Implements(d) {
			return true
		}
	}
	return false
}

// DisposeProcessor records a ledger action disposing either the component
// itself (type marker) or the value held by a field (field marker). A field
// is read when the ledger fires, so it may be reassigned after assembly.
type DisposeProcessor struct{}

func (*DisposeProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Dispose]() }

func (*DisposeProcessor) ProcessType(t *meta.Type, inv assembly.Invocation) error {
	dispose, ok := disposal(inv.Component)
	if !ok {
		return wrongComponent(inv, "Dispose or Close")
	}
	inv.Destroyer.AddAction(func() error {
		if err := dispose(); err != nil {
			return fmt.Errorf("disposing %s: %w", t.Name(), err)
		}
		return nil
	})
	return nil
}

func (*DisposeProcessor) ProcessField(f *meta.Field, inv assembly.Invocation) error {
	if !disposable(f.Type) {
		return fmt.Errorf("field %s: %s has no Dispose or Close method", f, f.Type)
	}
	component := inv.Component
	inv.Destroyer.AddAction(func() error {
		v, err := f.Get(component)
		if err != nil {
			return err
		}
		if isNil(v) {
			return nil
		}
		dispose, ok := disposal(v)
		if !ok {
			return nil
		}
		if err := dispose(); err != nil {
			return fmt.Errorf("disposing %s: %w", f, err)
		}
		return nil
	})
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
