package assembly

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-assemble/framework/meta"
)

var stages = [...]Capability{SupportsTypes, SupportsFields, SupportsMethods}

// wire runs the processors over a batch in three barriers: every type-level
// marker of the batch first, then every field-level marker, then every
// method-level marker. Processors are looked up live, so one registered by an
// earlier element applies to the elements that follow it.
func (i *Initializer) wire(batch []any) error {
	for _, stage := range stages {
		for _, component := range batch {
			d, ok := i.context.Descriptor(reflect.TypeOf(component))
			if !ok {
				continue
			}
			if err := i.wireStage(stage, d, component); err != nil {
				return err
			}
		}
	}
	return nil
}

func (i *Initializer) wireStage(stage Capability, d *meta.Type, component any) error {
	inv := Invocation{
		Component:   component,
		Context:     i.context,
		Initializer: i,
		Destroyer:   i.destroyer,
	}

	switch stage {
	case SupportsTypes:
		for _, m := range d.Markers {
			for _, p := range i.pipeline.lookup(SupportsTypes, meta.MarkerType(m)) {
				inv.Marker = m
				if err := p.(TypeProcessor).ProcessType(d, inv); err != nil {
					return processorError(p, "type "+d.Name(), err)
				}
			}
		}

	case SupportsFields:
		for _, a := range i.context.Lineage(d) {
			for _, f := range a.Fields {
				for _, m := range f.Markers {
					for _, p := range i.pipeline.lookup(SupportsFields, meta.MarkerType(m)) {
						inv.Marker = m
						if err := p.(FieldProcessor).ProcessField(f, inv); err != nil {
							return processorError(p, "field "+f.String(), err)
						}
					}
				}
			}
		}

	case SupportsMethods:
		for _, a := range i.context.Lineage(d) {
			for _, method := range a.Methods {
				for _, m := range method.Markers {
					for _, p := range i.pipeline.lookup(SupportsMethods, meta.MarkerType(m)) {
						inv.Marker = m
						if err := p.(MethodProcessor).ProcessMethod(method, inv); err != nil {
							return processorError(p, "method "+method.String(), err)
						}
					}
				}
			}
		}
	}
	return nil
}

func processorError(p Processor, element string, err error) error {
	return &ProcessorError{Processor: fmt.Sprintf("%T", p), Element: element, Err: err}
}
