package routing

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
)

// Route marks a handler method, or a component implementing http.Handler,
// to be registered on the Router. On a type, Pattern is a mount point and
// Method is ignored.
//
//	meta.Describe[*UserController]().
//	    Mark(markers.Component{}).
//	    Method("Show", routing.Route{Method: http.MethodGet, Pattern: "/users/{id}"})
type Route struct {
	Method  string
	Pattern string
}

var errNoRouter = errors.New("routing: no router injected")

// Processor registers Route-marked handlers on the injected Router. Because
// it handles Route on types, components carrying only a Route marker are
// scanned too.
type Processor struct {
	Router *Router
}

func (*Processor) Marker() reflect.Type { return meta.MarkerOf[Route]() }

// Descriptor has the router injected into the processor itself.
func (*Processor) Descriptor() *meta.Type {
	return meta.Describe[*Processor]().Field("Router", markers.Inject{})
}

func (p *Processor) ProcessType(t *meta.Type, inv assembly.Invocation) error {
	route := inv.Marker.(Route)
	if p.Router == nil {
		return errNoRouter
	}
	h, ok := inv.Component.(http.Handler)
	if !ok {
		return fmt.Errorf("%s is routed but does not implement http.Handler", t.Name())
	}
	if route.Pattern == "" {
		return fmt.Errorf("%s: route needs a pattern", t.Name())
	}
	p.Router.Mount(route.Pattern, h)
	return nil
}

func (p *Processor) ProcessMethod(m *meta.Method, inv assembly.Invocation) error {
	route := inv.Marker.(Route)
	if p.Router == nil {
		return errNoRouter
	}
	if route.Pattern == "" {
		return fmt.Errorf("%s: route needs a pattern", m)
	}
	fn, err := m.Bind(inv.Component)
	if err != nil {
		return err
	}
	h, ok := fn.Interface().(func(http.ResponseWriter, *http.Request))
	if !ok {
		return fmt.Errorf("%s is not an http handler method: %s", m, fn.Type())
	}
	p.Router.Handle(route.Method, route.Pattern, h)
	return nil
}
