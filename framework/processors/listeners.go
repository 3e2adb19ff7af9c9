package processors

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/events"
	"github.com/km-arc/go-assemble/framework/markers"
	"github.com/km-arc/go-assemble/framework/meta"
)

var errNoDispatcher = errors.New("no dispatcher injected")

// methodResult reads the optional bool result of a listener method.
func methodResult(results []any) bool {
	if len(results) == 1 {
		if remove, ok := results[0].(bool); ok {
			return remove
		}
	}
	return false
}

// ── Events ────────────────────────────────────────────────────────────────────

type eventListener struct {
	event    reflect.Type
	listener events.Listener
	source   string
}

// EventProcessor attaches OnEvent listeners to the event dispatcher. A
// marked method takes the event as its only parameter and may return a bool
// (remove) and/or an error. A marked type must implement events.Listener.
//
// Attachment is deferred until every component is wired, so no listener
// sees events posted during assembly.
type EventProcessor struct {
	Events *events.EventDispatcher

	pending []eventListener
}

func (*EventProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.OnEvent]() }

// Descriptor has the dispatcher injected into the processor itself.
func (*EventProcessor) Descriptor() *meta.Type {
	return meta.Describe[*EventProcessor]().Field("Events", markers.Inject{})
}

func (p *EventProcessor) ProcessType(t *meta.Type, inv assembly.Invocation) error {
	m := inv.Marker.(markers.OnEvent)
	l, ok := inv.Component.(events.Listener)
	if !ok {
		return wrongComponent(inv, "events.Listener")
	}
	if m.Event == nil {
		return fmt.Errorf("%s: OnEvent on a type needs an event type", t.Name())
	}
	if m.RemoveAfter {
		inner := l
		l = events.ListenerFunc(func(event any) (bool, error) {
			_, err := inner.ProcessEvent(event)
			return true, err
		})
	}
	p.pending = append(p.pending, eventListener{event: m.Event, listener: l, source: t.Name()})
	return nil
}

func (p *EventProcessor) ProcessMethod(method *meta.Method, inv assembly.Invocation) error {
	m := inv.Marker.(markers.OnEvent)
	params, err := method.Params(inv.Component)
	if err != nil {
		return err
	}
	if len(params) != 1 {
		return fmt.Errorf("event listener %s must take exactly one parameter", method)
	}
	event := m.Event
	if event == nil {
		event = params[0]
	}
	if !event.AssignableTo(params[0]) {
		return fmt.Errorf("event listener %s cannot receive %s", method, event)
	}

	component, once := inv.Component, m.RemoveAfter
	p.pending = append(p.pending, eventListener{
		event: event,
		listener: events.ListenerFunc(func(e any) (bool, error) {
			results, err := method.Invoke(component, e)
			return once || methodResult(results), err
		}),
		source: method.String(),
	})
	return nil
}

func (p *EventProcessor) AfterScan(ini *assembly.Initializer, _ *assembly.Context, _ *assembly.Destroyer) error {
	pending := p.pending
	p.pending = nil
	if len(pending) == 0 {
		return nil
	}
	if p.Events == nil {
		return fmt.Errorf("event listeners: %w", errNoDispatcher)
	}
	for _, l := range pending {
		p.Events.AddListener(l.event, l.listener)
		ini.Logger().Debug("event listener attached",
			zap.Stringer("event", l.event),
			zap.String("listener", l.source),
		)
	}
	return nil
}

// ── Messages ──────────────────────────────────────────────────────────────────

type messageListener struct {
	message  string
	listener events.MessageListener
	source   string
}

// MessageProcessor attaches OnMessage listeners to the message dispatcher.
// A marked method takes no parameter, the payload, or the message name and
// the payload, and may return a bool (remove) and/or an error. A marked type
// must implement events.MessageListener.
type MessageProcessor struct {
	Messages *events.MessageDispatcher

	pending []messageListener
}

func (*MessageProcessor) Marker() reflect.Type { return meta.MarkerOf[markers.OnMessage]() }

// Descriptor has the dispatcher injected into the processor itself.
func (*MessageProcessor) Descriptor() *meta.Type {
	return meta.Describe[*MessageProcessor]().Field("Messages", markers.Inject{})
}

func (p *MessageProcessor) ProcessType(t *meta.Type, inv assembly.Invocation) error {
	m := inv.Marker.(markers.OnMessage)
	l, ok := inv.Component.(events.MessageListener)
	if !ok {
		return wrongComponent(inv, "events.MessageListener")
	}
	if m.Message == "" {
		return fmt.Errorf("%s: OnMessage needs a message name", t.Name())
	}
	if m.RemoveAfter {
		inner := l
		l = events.MessageListenerFunc(func(message string, payload any) (bool, error) {
			_, err := inner.ProcessMessage(message, payload)
			return true, err
		})
	}
	p.pending = append(p.pending, messageListener{message: m.Message, listener: l, source: t.Name()})
	return nil
}

func (p *MessageProcessor) ProcessMethod(method *meta.Method, inv assembly.Invocation) error {
	m := inv.Marker.(markers.OnMessage)
	if m.Message == "" {
		return fmt.Errorf("message listener %s needs a message name", method)
	}
	params, err := method.Params(inv.Component)
	if err != nil {
		return err
	}
	if len(params) > 2 || (len(params) == 2 && params[0] != reflect.TypeFor[string]()) {
		return fmt.Errorf("message listener %s must take (), (payload) or (string, payload)", method)
	}

	component, once, arity := inv.Component, m.RemoveAfter, len(params)
	p.pending = append(p.pending, messageListener{
		message: m.Message,
		listener: events.MessageListenerFunc(func(message string, payload any) (bool, error) {
			var args []any
			switch arity {
			case 1:
				args = []any{payload}
			case 2:
				args = []any{message, payload}
			}
			results, err := method.Invoke(component, args...)
			return once || methodResult(results), err
		}),
		source: method.String(),
	})
	return nil
}

func (p *MessageProcessor) AfterScan(ini *assembly.Initializer, _ *assembly.Context, _ *assembly.Destroyer) error {
	pending := p.pending
	p.pending = nil
	if len(pending) == 0 {
		return nil
	}
	if p.Messages == nil {
		return fmt.Errorf("message listeners: %w", errNoDispatcher)
	}
	for _, l := range pending {
		p.Messages.AddListener(l.message, l.listener)
		ini.Logger().Debug("message listener attached",
			zap.String("message", l.message),
			zap.String("listener", l.source),
		)
	}
	return nil
}
