// Package events provides the synchronous dispatchers the listener
// processors attach methods to: EventDispatcher routes typed events,
// MessageDispatcher routes named messages.
//
// Both are safe for concurrent use and their zero values are ready to use.
// Listeners run on the posting goroutine, in registration order. A listener
// that reports true is removed after the current delivery.
package events

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Listener receives events of the type it was registered for.
type Listener interface {
	ProcessEvent(event any) (remove bool, err error)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(event any) (bool, error)

func (f ListenerFunc) ProcessEvent(event any) (bool, error) { return f(event) }

type registration[L any] struct {
	listener L
}

// registry is the listener table shared by both dispatchers.
type registry[K comparable, L any] struct {
	mu        sync.RWMutex
	listeners map[K][]*registration[L]
}

func (r *registry[K, L]) add(key K, l L) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[K][]*registration[L])
	}
	r.listeners[key] = append(r.listeners[key], &registration[L]{listener: l})
}

func (r *registry[K, L]) snapshot(key K) []*registration[L] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.listeners[key]
	out := make([]*registration[L], len(regs))
	copy(out, regs)
	return out
}

func (r *registry[K, L]) remove(key K, done []*registration[L]) {
	if len(done) == 0 {
		return
	}
	drop := make(map[*registration[L]]bool, len(done))
	for _, reg := range done {
		drop[reg] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.listeners[key][:0]
	for _, reg := range r.listeners[key] {
		if !drop[reg] {
			kept = append(kept, reg)
		}
	}
	if len(kept) == 0 {
		delete(r.listeners, key)
		return
	}
	r.listeners[key] = kept
}

func (r *registry[K, L]) count(key K) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[key])
}

func (r *registry[K, L]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = nil
}

// deliver calls fn for every listener registered under key. Every listener
// runs even when an earlier one fails; the failures are joined.
func (r *registry[K, L]) deliver(key K, fn func(L) (bool, error)) error {
	var (
		errs []error
		done []*registration[L]
	)
	for _, reg := range r.snapshot(key) {
		remove, err := fn(reg.listener)
		if err != nil {
			errs = append(errs, err)
		}
		if remove {
			done = append(done, reg)
		}
	}
	r.remove(key, done)
	return errors.Join(errs...)
}

// ── Events ────────────────────────────────────────────────────────────────────

// EventDispatcher routes events by their dynamic type.
type EventDispatcher struct {
	reg registry[reflect.Type, Listener]
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher { return &EventDispatcher{} }

// AddListener registers l for events whose dynamic type is eventType.
func (d *EventDispatcher) AddListener(eventType reflect.Type, l Listener) {
	if eventType == nil || l == nil {
		panic("events: AddListener: nil event type or listener")
	}
	d.reg.add(eventType, l)
}

// Post delivers event to every listener of its type.
func (d *EventDispatcher) Post(event any) error {
	if event == nil {
		return fmt.Errorf("events: cannot post a nil event")
	}
	return d.reg.deliver(reflect.TypeOf(event), func(l Listener) (bool, error) {
		return l.ProcessEvent(event)
	})
}

// ListenerCount returns the listeners registered for eventType.
func (d *EventDispatcher) ListenerCount(eventType reflect.Type) int {
	return d.reg.count(eventType)
}

// Clear removes every listener.
func (d *EventDispatcher) Clear() { d.reg.clear() }

// ── Messages ──────────────────────────────────────────────────────────────────

// MessageListener receives named messages with an optional payload.
type MessageListener interface {
	ProcessMessage(message string, payload any) (remove bool, err error)
}

// MessageListenerFunc adapts a function to a MessageListener.
type MessageListenerFunc func(message string, payload any) (bool, error)

func (f MessageListenerFunc) ProcessMessage(message string, payload any) (bool, error) {
	return f(message, payload)
}

// MessageDispatcher routes messages by name.
type MessageDispatcher struct {
	reg registry[string, MessageListener]
}

// NewMessageDispatcher creates an empty dispatcher.
func NewMessageDispatcher() *MessageDispatcher { return &MessageDispatcher{} }

// AddListener registers l for message.
func (d *MessageDispatcher) AddListener(message string, l MessageListener) {
	if message == "" || l == nil {
		panic("events: AddListener: empty message or nil listener")
	}
	d.reg.add(message, l)
}

// Post delivers message to every listener registered for it.
func (d *MessageDispatcher) Post(message string, payload any) error {
	return d.reg.deliver(message, func(l MessageListener) (bool, error) {
		return l.ProcessMessage(message, payload)
	})
}

// ListenerCount returns the listeners registered for message.
func (d *MessageDispatcher) ListenerCount(message string) int {
	return d.reg.count(message)
}

// Clear removes every listener.
func (d *MessageDispatcher) Clear() { d.reg.clear() }
