package montage

import (
	"fmt"
	"strings"
)

// PropertyFilter post-processes a resolved property value. Filters implement
// fallback chains such as "an unset width inherits the movie's width". They
// run on every uncached read and must be pure.
type PropertyFilter func(e Entity, v any) (any, error)

// propertyFilters maps type tag → property path → filter.
var propertyFilters = map[string]map[string]PropertyFilter{}

// RegisterPropertyFilter installs fn for path on entities of type typ and its
// descendant types. A filter on a more specific tag shadows one on an
// ancestor.
func RegisterPropertyFilter(typ, path string, fn PropertyFilter) {
	byPath, ok := propertyFilters[typ]
	if !ok {
		byPath = make(map[string]PropertyFilter)
		propertyFilters[typ] = byPath
	}
	byPath[path] = fn
}

func lookupFilter(typ, path string) PropertyFilter {
	for _, tag := range typeChain(typ) {
		if fn, ok := propertyFilters[tag][path]; ok {
			return fn
		}
	}
	return nil
}

// Val resolves the dot-separated property path on e at time t.
//
// Within one frame a given (entity, path) is computed once: the first result
// is stored in the movie's FrameCache and returned for every later read until
// the next tick clears it. Entities not attached to a movie are never cached.
func Val(e Entity, path string, t float64) (any, error) {
	b := e.entity()
	m := b.Movie()
	if m != nil {
		if v, ok := m.cache.Get(b.id, path); ok {
			return v, nil
		}
	}

	segs := strings.Split(path, ".")
	raw, ok := b.props[segs[0]]
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", ErrUnknownProperty, path, b.typ)
	}
	for _, seg := range segs[1:] {
		cur, err := resolveRaw(e, raw, t)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", b.typ, path, err)
		}
		switch c := cur.(type) {
		case map[string]any:
			raw, ok = c[seg]
		case PropertyGetter:
			raw, ok = c.Property(seg)
		default:
			ok = false
		}
		if !ok {
			return nil, fmt.Errorf("%w %q on %s", ErrUnknownProperty, path, b.typ)
		}
	}

	v, err := resolveRaw(e, raw, t)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.typ, path, err)
	}
	if fn := lookupFilter(b.typ, path); fn != nil {
		if v, err = fn(e, v); err != nil {
			return nil, fmt.Errorf("%s %s: filter: %w", b.typ, path, err)
		}
	}
	if m != nil {
		m.cache.Put(b.id, path, v)
	}
	return v, nil
}

// resolveRaw dispatches on the kind of raw property value.
func resolveRaw(e Entity, raw any, t float64) (any, error) {
	switch r := raw.(type) {
	case *KeyframeSet:
		return r.Evaluate(t)
	case PropertyFunc:
		return r(e, t)
	case func(Entity, float64) (any, error):
		return r(e, t)
	case func(Entity, float64) any:
		return r(e, t), nil
	}
	return raw, nil
}

// --- Typed accessors ---

// Float resolves path as a number.
func Float(e Entity, path string, t float64) (float64, error) {
	v, err := Val(e, path, t)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok || kindOf(v) != kindNumber {
		return 0, fmt.Errorf("%w: %s is %T, want a number", ErrPropertyType, path, v)
	}
	return f, nil
}

// Int resolves path as a number and rounds it toward zero.
func Int(e Entity, path string, t float64) (int, error) {
	f, err := Float(e, path, t)
	return int(f), err
}

// Bool resolves path as a bool.
func Bool(e Entity, path string, t float64) (bool, error) {
	v, err := Val(e, path, t)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, want bool", ErrPropertyType, path, v)
	}
	return b, nil
}

// ColorVal resolves path as a color. ok is false when the value is nil, which
// optional colors such as backgrounds use to mean "none".
func ColorVal(e Entity, path string, t float64) (c Color, ok bool, err error) {
	v, err := Val(e, path, t)
	if err != nil || v == nil {
		return Color{}, false, err
	}
	c, ok = colorFrom(v)
	if !ok {
		return Color{}, false, fmt.Errorf("%w: %s is %T, want a color", ErrPropertyType, path, v)
	}
	return c, true, nil
}

// ValAs resolves path and asserts the result to T. A nil value yields T's
// zero value.
func ValAs[T any](e Entity, path string, t float64) (T, error) {
	var zero T
	v, err := Val(e, path, t)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrPropertyType, path, v, zero)
	}
	return out, nil
}
