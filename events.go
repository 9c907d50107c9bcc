package montage

import "strings"

// Event types published by the engine. Types are dot-segmented; a listener
// subscribed to "a.b" receives "a.b" and "a.b.<anything>", never "a".
const (
	EventPlay        = "movie.play"
	EventPause       = "movie.pause"
	EventSeek        = "movie.seek"
	EventTimeUpdate  = "movie.timeupdate"
	EventEnded       = "movie.ended"
	EventLoadedData  = "movie.loadeddata"
	EventRecordEnded = "movie.recordended"
	EventError       = "movie.error"
	EventMovieChange = "movie.change"

	EventLayerAttach = "layer.attach"
	EventLayerDetach = "layer.detach"
	EventLayerStart  = "layer.start"
	EventLayerStop   = "layer.stop"
	EventLayerChange = "layer.change"

	EventEffectAttach = "effect.attach"
	EventEffectDetach = "effect.detach"
	EventEffectChange = "effect.change"
)

// Event is delivered to listeners. Payload depends on Type: PropertyChange
// for ".change.modify", ListChange for list add/remove, error for
// "movie.error", the bubbled child Event for republished changes.
type Event struct {
	Target  Entity
	Type    string
	Payload any
}

// Listener handles one event.
type Listener func(ev Event)

// Subscription identifies one registered listener.
type Subscription struct {
	target uint32
	id     uint64
}

type listenerEntry struct {
	typ string
	id  uint64
	fn  Listener
}

// EventBus dispatches events to listeners keyed by target entity. Dispatch is
// synchronous and in registration order. A listener that subscribes or
// unsubscribes during dispatch affects later dispatches, not the current one.
type EventBus struct {
	listeners map[uint32][]listenerEntry
	nextID    uint64
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[uint32][]listenerEntry)}
}

// Events is the bus used by every entity.
var Events = NewEventBus()

// Subscribe registers fn for events of type typ (and its subtypes) published
// on target.
func (b *EventBus) Subscribe(target Entity, typ string, fn Listener) Subscription {
	b.nextID++
	id := target.entity().id
	b.listeners[id] = append(b.listeners[id], listenerEntry{typ: typ, id: b.nextID, fn: fn})
	return Subscription{target: id, id: b.nextID}
}

// Unsubscribe removes a listener. It returns ErrListenerNotFound if sub was
// never registered on target or was already removed.
func (b *EventBus) Unsubscribe(target Entity, sub Subscription) error {
	id := target.entity().id
	ls := b.listeners[id]
	if sub.target == id {
		for i, l := range ls {
			if l.id == sub.id {
				// Full-capacity slice expression forces a copy so that an
				// in-progress dispatch keeps iterating the old slice.
				b.listeners[id] = append(ls[:i:i], ls[i+1:]...)
				if len(b.listeners[id]) == 0 {
					delete(b.listeners, id)
				}
				return nil
			}
		}
	}
	return ErrListenerNotFound
}

// UnsubscribeAll removes every listener registered on target.
func (b *EventBus) UnsubscribeAll(target Entity) {
	delete(b.listeners, target.entity().id)
}

// Publish delivers an event to every listener on target whose subscribed type
// is typ or a segment-wise prefix of it.
func (b *EventBus) Publish(target Entity, typ string, payload any) {
	ls := b.listeners[target.entity().id]
	if len(ls) == 0 {
		return
	}
	ev := Event{Target: target, Type: typ, Payload: payload}
	for _, l := range ls {
		if typeMatches(l.typ, typ) {
			l.fn(ev)
		}
	}
}

// Subscribe registers fn on the default bus.
func Subscribe(target Entity, typ string, fn Listener) Subscription {
	return Events.Subscribe(target, typ, fn)
}

// Unsubscribe removes a listener from the default bus.
func Unsubscribe(target Entity, sub Subscription) error {
	return Events.Unsubscribe(target, sub)
}

// Publish publishes on the default bus.
func Publish(target Entity, typ string, payload any) {
	Events.Publish(target, typ, payload)
}

// typeMatches reports whether a listener subscribed to sub receives pub.
func typeMatches(sub, pub string) bool {
	return pub == sub || (strings.HasPrefix(pub, sub) && pub[len(sub)] == '.')
}

// bubble republishes child's change events on parent. "layer.change.modify"
// from a layer arrives on its movie as "movie.change.layer.modify", with the
// original event as payload.
func bubble(child Entity, parent Entity) Subscription {
	childRoot := rootType(child.entity().typ)
	parentRoot := rootType(parent.entity().typ)
	prefix := childRoot + ".change"
	return Subscribe(child, prefix, func(ev Event) {
		Publish(parent, parentRoot+".change."+childRoot+ev.Type[len(prefix):], ev)
	})
}
