package demo

import (
	"net/http"
	"reflect"

	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
	"github.com/km-arc/go-assemble/framework/routing"
)

// Root is the scanning root of the demo namespace.
var Root = reflect.TypeFor[*MemoryStore]()

// Catalog describes every demo component.
func Catalog() *meta.Catalog {
	store := meta.Interface[ItemStore]()

	return markers.NewCatalog().MustAdd(
		meta.Describe[*ItemController]().
			Mark(markers.Component{}).
			Constructor(NewItemController).
			Method("List", routing.Route{Method: http.MethodGet, Pattern: "/items"}).
			Method("Show", routing.Route{Method: http.MethodGet, Pattern: "/items/{id}"}).
			Method("Create", routing.Route{Method: http.MethodPost, Pattern: "/items"}),

		meta.Describe[*MemoryStore]().
			Extends(store).
			Mark(markers.Component{}, markers.Dispose{}).
			Constructor(NewMemoryStore).
			Method("Seed", markers.Initiate{Priority: 10}),

		meta.Describe[*ClockProvider]().
			Mark(markers.Provider{}),

		meta.Describe[*AuditLog]().
			Mark(markers.Component{}).
			Constructor(NewAuditLog).
			Method("Record", markers.OnEvent{}).
			Method("Flush", markers.Destroy{}),

		meta.Describe[*Health]().
			Mark(routing.Route{Pattern: "/health"}),

		meta.Describe[*Reloader]().
			Mark(markers.Component{}).
			Method("Reload", markers.OnMessage{Message: "reload"}),
	)
}
