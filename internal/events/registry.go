package events

import "slices"

// Handle identifies a registration for Remove.
type Handle struct {
	kind Kind
	id   int
}

type entry struct {
	id int
	fn Listener
}

// Registry holds the listeners of one or more tapes. It is not safe for
// concurrent use, like the tapes it serves.
type Registry struct {
	listeners [numKinds][]entry
	next      int

	highLevel bool
	lowLevel  bool
}

// NewRegistry creates a registry with both gates open.
func NewRegistry() *Registry {
	return &Registry{highLevel: true, lowLevel: true}
}

// SetGates opens or closes the workflow and identifier event gates.
func (r *Registry) SetGates(highLevel, lowLevel bool) {
	r.highLevel, r.lowLevel = highLevel, lowLevel
}

// Listen registers fn for events of kind k.
func (r *Registry) Listen(k Kind, fn Listener) Handle {
	r.next++
	r.listeners[k] = append(r.listeners[k], entry{id: r.next, fn: fn})
	return Handle{kind: k, id: r.next}
}

// ListenAll registers fn for every kind and returns one handle per kind.
func (r *Registry) ListenAll(fn Listener) []Handle {
	handles := make([]Handle, 0, numKinds)
	for _, k := range Kinds() {
		handles = append(handles, r.Listen(k, fn))
	}
	return handles
}

// Remove unregisters a listener. Removing twice is a no-op.
func (r *Registry) Remove(h Handle) {
	r.listeners[h.kind] = slices.DeleteFunc(r.listeners[h.kind], func(e entry) bool {
		return e.id == h.id
	})
}

// Enabled reports whether an event of kind k would reach a listener. It is
// safe to call on a nil registry.
func (r *Registry) Enabled(k Kind) bool {
	if r == nil {
		return false
	}
	if k.LowLevel() {
		if !r.lowLevel {
			return false
		}
	} else if !r.highLevel {
		return false
	}
	return len(r.listeners[k]) > 0
}

// Notify calls the listeners of e.Kind in registration order.
func (r *Registry) Notify(e *Event) {
	if !r.Enabled(e.Kind) {
		return
	}
	for _, l := range r.listeners[e.Kind] {
		l.fn(e)
	}
}
