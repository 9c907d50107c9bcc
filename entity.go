package montage

import (
	"fmt"
	"sort"
	"strings"
)

// Entity is anything that takes part in a composition: a *Movie, a *Layer or
// an Effect. Every entity embeds a Base.
type Entity interface {
	entity() *Base
}

// PropertyFunc computes a property value from the entity and the time at
// which it is read. It is the most general way to animate a property.
type PropertyFunc func(e Entity, t float64) (any, error)

// PropertyGetter lets a custom property value expose nested fields to dotted
// paths, e.g. "transform.matrix".
type PropertyGetter interface {
	Property(name string) (any, bool)
}

// PropertyChange is the payload of "<type>.change.modify" events.
type PropertyChange struct {
	Property string
	Value    any
}

// --- ID counter ---

// entityIDCounter is a plain counter (no atomic; montage is single-threaded).
var entityIDCounter uint32

func nextEntityID() uint32 {
	entityIDCounter++
	return entityIDCounter
}

// --- Base ---

// Base carries the identity, type tag and named properties shared by all
// entities, plus the occurrence count used by the attach/detach protocol.
type Base struct {
	id     uint32
	typ    string
	props  map[string]any
	self   Entity
	parent Entity

	occurrences int
}

func (b *Base) entity() *Base { return b }

// init assigns an ID and fills the property map from the declared defaults of
// typ overlaid with opts. Unknown option keys are rejected.
func (b *Base) init(self Entity, typ string, opts Options) error {
	defaults := defaultsFor(typ)
	for k := range opts {
		if _, ok := defaults[k]; !ok {
			return fmt.Errorf("%w %q for %s", ErrUnknownOption, k, typ)
		}
	}
	b.id = nextEntityID()
	b.typ = typ
	b.self = self
	b.props = make(map[string]any, len(defaults))
	for k, v := range defaults {
		b.props[k] = v
	}
	for k, v := range opts {
		b.props[k] = v
	}
	return nil
}

// ID returns the entity's stable handle.
func (b *Base) ID() uint32 { return b.id }

// Type returns the dot-segmented type tag, e.g. "layer.visual.image".
func (b *Base) Type() string { return b.typ }

// Parent returns the entity this one is attached to, or nil.
func (b *Base) Parent() Entity { return b.parent }

// Occurrences returns how many times the entity is currently attached.
func (b *Base) Occurrences() int { return b.occurrences }

// Movie returns the composition root the entity is attached to, or nil.
func (b *Base) Movie() *Movie {
	for e := b.self; e != nil; e = e.entity().parent {
		if m, ok := e.(*Movie); ok {
			return m
		}
	}
	return nil
}

// Property returns the raw (unresolved) value of a top-level property.
func (b *Base) Property(name string) (any, bool) {
	v, ok := b.props[name]
	return v, ok
}

// Properties returns the sorted names of the entity's properties.
func (b *Base) Properties() []string {
	names := make([]string, 0, len(b.props))
	for k := range b.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set replaces the raw value of a top-level property and publishes
// "<type>.change.modify". v may be a plain value, a PropertyFunc, a
// func(Entity, float64) any, or a *KeyframeSet.
func (b *Base) Set(name string, v any) error {
	if _, ok := b.props[name]; !ok {
		return fmt.Errorf("%w %q on %s", ErrUnknownProperty, name, b.typ)
	}
	b.props[name] = v
	if m := b.Movie(); m != nil {
		m.cache.Forget(b.id)
	}
	Publish(b.self, rootType(b.typ)+".change.modify", PropertyChange{Property: name, Value: v})
	return nil
}

// CurrentTime returns e's position on its own timeline: the movie time for a
// movie, the time since start for a layer, the target's time for an effect.
func CurrentTime(e Entity) float64 {
	if tl, ok := e.(interface{ CurrentTime() float64 }); ok {
		return tl.CurrentTime()
	}
	return 0
}

// rootType returns the first segment of a type tag.
func rootType(typ string) string {
	if i := strings.IndexByte(typ, '.'); i >= 0 {
		return typ[:i]
	}
	return typ
}

// typeChain returns typ and each of its ancestors, most specific first:
// "layer.visual.image" → ["layer.visual.image", "layer.visual", "layer"].
func typeChain(typ string) []string {
	chain := []string{typ}
	for {
		i := strings.LastIndexByte(typ, '.')
		if i < 0 {
			return chain
		}
		typ = typ[:i]
		chain = append(chain, typ)
	}
}
