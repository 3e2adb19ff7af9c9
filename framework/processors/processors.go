// Package processors holds the default processor set that gives the default
// marker vocabulary (package markers) its meaning.
//
// # Order
//
// Defaults returns the processors in a fixed order. The order matters:
// ProcessorProcessor comes first so scanned processors join the pipeline
// before anything else is wired, and InjectProcessor precedes the listener
// processors because their dispatchers are injected into them during the
// meta phase.
//
//  1. ProcessorProcessor  type    markers.Processor
//  2. ProviderProcessor   type    markers.Provider
//  3. InjectProcessor     field   markers.Inject
//  4. InitiateProcessor   method  markers.Initiate
//  5. DestroyProcessor    method  markers.Destroy
//  6. DisposeProcessor    type, field  markers.Dispose
//  7. EventProcessor      type, method markers.OnEvent
//  8. MessageProcessor    type, method markers.OnMessage
package processors

import (
	"fmt"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/events"
)

// Defaults returns a fresh default processor set in documented order.
func Defaults() []assembly.Processor {
	return []assembly.Processor{
		&ProcessorProcessor{},
		&ProviderProcessor{},
		&InjectProcessor{},
		&InitiateProcessor{},
		&DestroyProcessor{},
		&DisposeProcessor{},
		&EventProcessor{},
		&MessageProcessor{},
	}
}

// Dispatchers are the listener targets registered by Install.
type Dispatchers struct {
	Events   *events.EventDispatcher
	Messages *events.MessageDispatcher
}

// Install registers the event and message dispatchers as components and the
// default processors in order.
func Install(ini *assembly.Initializer) Dispatchers {
	d := Dispatchers{
		Events:   events.NewEventDispatcher(),
		Messages: events.NewMessageDispatcher(),
	}
	ini.AddComponent(d.Events, d.Messages)
	for _, p := range Defaults() {
		ini.AddProcessor(p)
	}
	return d
}

func wrongComponent(inv assembly.Invocation, want string) error {
	return fmt.Errorf("%T does not implement %s", inv.Component, want)
}
