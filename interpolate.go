package montage

import (
	"fmt"
	"math"
	"reflect"

	"github.com/tanema/gween/ease"
)

// Interpolator blends a toward b by progress t in [0, 1]. a and b must have
// the same shape: two numbers, or two objects of the same Go type (maps with
// string keys, structs, slices, arrays). Any other pair of same-kind values is
// interpolated flat, returning a unchanged.
//
// keys, when non-nil, restricts object interpolation to the named fields.
type Interpolator func(a, b any, t float64, keys []string) (any, error)

// Linear interpolates numbers as (1-t)*a + t*b and objects field by field.
func Linear(a, b any, t float64, keys []string) (any, error) {
	return blend(a, b, t, keys, linearWeight)
}

// Cosine interpolates with cos(t*pi/2) as the weight of a, easing out of a
// and into b. Cosine(a, b, 0) is a and Cosine(a, b, 1) is b exactly.
func Cosine(a, b any, t float64, keys []string) (any, error) {
	return blend(a, b, t, keys, cosineWeight)
}

// Ease returns an Interpolator driven by a gween easing curve. The curve maps
// progress to the weight of b; the blend itself follows Linear's rules.
//
//	montage.Keyframe{Time: 0, Value: 0.0, Interp: montage.Ease(ease.OutBounce)}
func Ease(fn ease.TweenFunc) Interpolator {
	weight := func(t float64) float64 {
		return float64(fn(float32(t), 0, 1, 1))
	}
	return func(a, b any, t float64, keys []string) (any, error) {
		return blend(a, b, t, keys, weight)
	}
}

func linearWeight(t float64) float64 { return t }

func cosineWeight(t float64) float64 {
	if t >= 1 {
		return 1
	}
	return 1 - math.Cos(t*math.Pi/2)
}

// valueKind is the coarse category that interpolation dispatches on.
type valueKind uint8

const (
	kindNil valueKind = iota
	kindNumber
	kindString
	kindBool
	kindObject
	kindOther
)

func (k valueKind) String() string {
	switch k {
	case kindNil:
		return "nil"
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindBool:
		return "bool"
	case kindObject:
		return "object"
	default:
		return "other"
	}
}

// kindOf classifies v. Only predeclared numeric types count as numbers;
// named numeric types such as BlendMode are enums and interpolate flat.
func kindOf(v any) valueKind {
	if v == nil {
		return kindNil
	}
	typ := reflect.TypeOf(v)
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if typ.PkgPath() == "" {
			return kindNumber
		}
		return kindOther
	case reflect.String:
		return kindString
	case reflect.Bool:
		return kindBool
	case reflect.Map:
		if typ.Key().Kind() == reflect.String {
			return kindObject
		}
		return kindOther
	case reflect.Struct, reflect.Slice, reflect.Array:
		return kindObject
	}
	return kindOther
}

// blend is the shared body of every interpolator. weight maps progress to the
// share of b in the result.
func blend(a, b any, t float64, keys []string, weight func(float64) float64) (any, error) {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return nil, fmt.Errorf("%w: %s and %s", ErrTypeMismatch, ka, kb)
	}
	switch ka {
	case kindNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		w := weight(t)
		v := (1-w)*fa + w*fb
		if reflect.TypeOf(a) != reflect.TypeOf(b) {
			// Mixed numeric types blend in float64.
			return v, nil
		}
		return fromFloat(v, a), nil
	case kindObject:
		return blendObject(a, b, t, keys, weight)
	}
	// Strings, bools, enums and everything else switch at the next keyframe.
	return a, nil
}

func blendObject(a, b any, t float64, keys []string, weight func(float64) float64) (any, error) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return nil, fmt.Errorf("%w: %s and %s", ErrPrototypeMismatch, ta, tb)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)

	switch ta.Kind() {
	case reflect.Map:
		out := reflect.MakeMapWithSize(ta, va.Len())
		iter := va.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		for _, k := range mapKeys(va, vb, keys) {
			key := reflect.ValueOf(k).Convert(ta.Key())
			ea, eb := va.MapIndex(key), vb.MapIndex(key)
			if !ea.IsValid() || !eb.IsValid() {
				return nil, fmt.Errorf("%w: key %q missing on one side", ErrTypeMismatch, k)
			}
			res, err := blend(ea.Interface(), eb.Interface(), t, nil, weight)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out.SetMapIndex(key, valueFor(res, ta.Elem()))
		}
		return out.Interface(), nil

	case reflect.Struct:
		out := reflect.New(ta).Elem()
		out.Set(va)
		names := keys
		if names == nil {
			for i := 0; i < ta.NumField(); i++ {
				if ta.Field(i).IsExported() {
					names = append(names, ta.Field(i).Name)
				}
			}
		}
		for _, name := range names {
			f := out.FieldByName(name)
			if !f.IsValid() || !f.CanSet() {
				return nil, fmt.Errorf("%w: %s has no exported field %q", ErrTypeMismatch, ta, name)
			}
			res, err := blend(va.FieldByName(name).Interface(), vb.FieldByName(name).Interface(), t, nil, weight)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			f.Set(valueFor(res, f.Type()))
		}
		return out.Interface(), nil

	case reflect.Slice, reflect.Array:
		n := min(va.Len(), vb.Len())
		var out reflect.Value
		if ta.Kind() == reflect.Slice {
			out = reflect.MakeSlice(ta, va.Len(), va.Len())
			reflect.Copy(out, va)
		} else {
			out = reflect.New(ta).Elem()
			out.Set(va)
		}
		for i := 0; i < n; i++ {
			res, err := blend(va.Index(i).Interface(), vb.Index(i).Interface(), t, nil, weight)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out.Index(i).Set(valueFor(res, ta.Elem()))
		}
		return out.Interface(), nil
	}
	return a, nil
}

// mapKeys returns the explicit keys when given, otherwise the keys present in
// both maps. Explicit keys always win over the intersection.
func mapKeys(va, vb reflect.Value, keys []string) []string {
	if keys != nil {
		return keys
	}
	var shared []string
	iter := va.MapRange()
	for iter.Next() {
		if vb.MapIndex(iter.Key()).IsValid() {
			shared = append(shared, iter.Key().String())
		}
	}
	return shared
}

// valueFor wraps res for assignment into a slot of type typ. A nil result
// becomes the zero value of typ.
func valueFor(res any, typ reflect.Type) reflect.Value {
	if res == nil {
		return reflect.Zero(typ)
	}
	v := reflect.ValueOf(res)
	if v.Type() != typ && v.Type().ConvertibleTo(typ) && typ.Kind() != reflect.Interface {
		return v.Convert(typ)
	}
	return v
}

// toFloat converts any Go numeric value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// fromFloat converts f back to the Go type of like, the type shared by both
// ends of the blend. Integer kinds round to the nearest integer.
func fromFloat(f float64, like any) any {
	if _, ok := like.(float64); ok {
		return f
	}
	rv := reflect.New(reflect.TypeOf(like)).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(int64(math.Round(f)))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(math.Round(math.Max(f, 0))))
	default:
		rv.SetFloat(f)
	}
	return rv.Interface()
}
