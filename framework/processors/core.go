package processors

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
)

// ProcessorProcessor adds components marked Processor to the pipeline.
type ProcessorProcessor struct{}

func (*ProcessorProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Processor]() }

func (*ProcessorProcessor) ProcessType(_ *meta.Type, inv assembly.Invocation) error {
	p, ok := inv.Component.(assembly.Processor)
	if !ok {
		return wrongComponent(inv, "assembly.Processor")
	}
	inv.Initializer.AddProcessor(p)
	return nil
}

// ProviderProcessor registers components marked Provider as factories.
type ProviderProcessor struct{}

func (*ProviderProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Provider]() }

func (*ProviderProcessor) ProcessType(_ *meta.Type, inv assembly.Invocation) error {
	p, ok := inv.Component.(assembly.Provider)
	if !ok {
		return wrongComponent(inv, "assembly.Provider")
	}
	if meta.IsUniversal(p.Provides()) {
		return fmt.Errorf("%T provides no concrete type", p)
	}
	inv.Context.RegisterProvider(p)
	return nil
}

// InjectProcessor assigns fields marked Inject from the registry.
type InjectProcessor struct{}

func (*InjectProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.Inject]() }

func (*InjectProcessor) ProcessField(f *meta.Field, inv assembly.Invocation) error {
	m := inv.Marker.(markers.Inject)
	if m.All {
		return injectAll(f, m, inv)
	}

	t := m.Type
	if t == nil {
		t = f.Type
	}
	value, err := inv.Context.Resolve(t)
	if err != nil {
		return err
	}
	return f.Set(inv.Component, value)
}

func injectAll(f *meta.Field, m markers.Inject, inv assembly.Invocation) error {
	if f.Type.Kind() != reflect.Slice {
		return fmt.Errorf("field %s: injecting all instances requires a slice, got %s", f, f.Type)
	}
	elem := f.Type.Elem()
	t := m.Type
	if t == nil {
		t = elem
	}

	instances := inv.Context.GetAll(t)
	slice := reflect.MakeSlice(f.Type, 0, len(instances))
	for _, instance := range instances {
		v := reflect.ValueOf(instance)
		if !v.Type().AssignableTo(elem) {
			return fmt.Errorf("field %s: cannot use %s as %s", f, v.Type(), elem)
		}
		slice = reflect.Append(slice, v)
	}
	return f.Set(inv.Component, slice.Interface())
}
