package montage

import (
	"fmt"
	"math"

	"github.com/tanema/gween/ease"
	"gopkg.in/yaml.v3"
)

// Keyframe is one control point of an animated property. Interp blends from
// this point toward the next one; nil means Linear.
type Keyframe struct {
	Time   float64
	Value  any
	Interp Interpolator
}

// Key is shorthand for a Keyframe literal.
func Key(time float64, value any, interp ...Interpolator) Keyframe {
	kf := Keyframe{Time: time, Value: value}
	if len(interp) > 0 {
		kf.Interp = interp[0]
	}
	return kf
}

// KeyframeSet is an animated property: control points in encounter order plus
// an optional list of object fields to interpolate. Assign one to any entity
// property to animate it.
//
// Points are not sorted. Correct usage keeps them in ascending time order.
type KeyframeSet struct {
	Points []Keyframe

	// InterpolationKeys restricts object interpolation to these fields. When
	// nil, fields present on both sides of a segment are interpolated.
	InterpolationKeys []string
}

// NewKeyframes builds a KeyframeSet from the given points.
func NewKeyframes(points ...Keyframe) *KeyframeSet {
	return &KeyframeSet{Points: points}
}

// WithKeys sets InterpolationKeys and returns k for chaining.
func (k *KeyframeSet) WithKeys(keys ...string) *KeyframeSet {
	k.InterpolationKeys = keys
	return k
}

// Len returns the number of control points.
func (k *KeyframeSet) Len() int {
	return len(k.Points)
}

// Evaluate returns the value of the animated property at time t.
//
// Evaluating before the first point is an error; past the last point the last
// value holds. Within a segment, a non-numeric start value followed by a
// non-object end value is returned as is (strings, bools and enums switch at
// the next point); anything else goes through the segment's interpolator.
func (k *KeyframeSet) Evaluate(t float64) (any, error) {
	if len(k.Points) == 0 {
		return nil, ErrNoKeyframes
	}
	if math.IsNaN(t) {
		return nil, ErrInvalidTime
	}
	if t < k.Points[0].Time {
		return nil, fmt.Errorf("%w: %v < %v", ErrBeforeFirstKeyframe, t, k.Points[0].Time)
	}

	last := len(k.Points) - 1
	for i := range k.Points {
		if i == last {
			return k.Points[i].Value, nil
		}
		start, end := k.Points[i], k.Points[i+1]
		if !(start.Time <= t && t < end.Time) {
			continue
		}
		sk, ek := kindOf(start.Value), kindOf(end.Value)
		if sk != kindNumber && ek != kindObject {
			return start.Value, nil
		}
		if sk != ek {
			return nil, fmt.Errorf("%w: keyframe %d is %s, keyframe %d is %s", ErrTypeMismatch, i, sk, i+1, ek)
		}
		pct := (t - start.Time) / (end.Time - start.Time)
		interp := start.Interp
		if interp == nil {
			interp = Linear
		}
		return interp(start.Value, end.Value, pct, k.InterpolationKeys)
	}
	// Unreachable: the last point always returns.
	return k.Points[last].Value, nil
}

// --- Named interpolators ---

// namedInterpolators maps the names usable in option documents to
// interpolators.
var namedInterpolators = map[string]Interpolator{
	"linear":     Linear,
	"cosine":     Cosine,
	"inQuad":     Ease(ease.InQuad),
	"outQuad":    Ease(ease.OutQuad),
	"inOutQuad":  Ease(ease.InOutQuad),
	"inCubic":    Ease(ease.InCubic),
	"outCubic":   Ease(ease.OutCubic),
	"inOutCubic": Ease(ease.InOutCubic),
	"inSine":     Ease(ease.InSine),
	"outSine":    Ease(ease.OutSine),
	"inOutSine":  Ease(ease.InOutSine),
	"outBounce":  Ease(ease.OutBounce),
	"outElastic": Ease(ease.OutElastic),
}

// RegisterInterpolator makes fn available under name in option documents.
func RegisterInterpolator(name string, fn Interpolator) {
	namedInterpolators[name] = fn
}

// --- YAML ---

// UnmarshalYAML decodes a KeyframeSet from either a sequence of points or a
// mapping with "points" and "keys":
//
//	opacity: !keyframes [[0, 0], [1, 1, cosine]]
//	offset: !keyframes
//	  points: [[0, {x: 0, y: 0}], [2, {x: 100, y: 50}]]
//	  keys: [x]
//
// Each point is [time, value] or [time, value, interpolator-name].
func (k *KeyframeSet) UnmarshalYAML(node *yaml.Node) error {
	points := node
	if node.Kind == yaml.MappingNode {
		points = nil
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			switch key.Value {
			case "points":
				points = val
			case "keys":
				if err := val.Decode(&k.InterpolationKeys); err != nil {
					return fmt.Errorf("keyframes: keys: %w", err)
				}
			default:
				return fmt.Errorf("keyframes: line %d: %w %q", key.Line, ErrUnknownOption, key.Value)
			}
		}
		if points == nil {
			return fmt.Errorf("keyframes: line %d: missing points", node.Line)
		}
	}
	if points.Kind != yaml.SequenceNode {
		return fmt.Errorf("keyframes: line %d: expected a sequence of points", points.Line)
	}

	k.Points = k.Points[:0]
	for _, p := range points.Content {
		if p.Kind != yaml.SequenceNode || len(p.Content) < 2 || len(p.Content) > 3 {
			return fmt.Errorf("keyframes: line %d: point must be [time, value] or [time, value, interpolator]", p.Line)
		}
		var kf Keyframe
		if err := p.Content[0].Decode(&kf.Time); err != nil {
			return fmt.Errorf("keyframes: line %d: time: %w", p.Line, err)
		}
		value, err := decodeValue(p.Content[1])
		if err != nil {
			return fmt.Errorf("keyframes: line %d: value: %w", p.Line, err)
		}
		kf.Value = value
		if len(p.Content) == 3 {
			name := p.Content[2].Value
			fn, ok := namedInterpolators[name]
			if !ok {
				return fmt.Errorf("keyframes: line %d: unknown interpolator %q", p.Line, name)
			}
			kf.Interp = fn
		}
		k.Points = append(k.Points, kf)
	}
	return nil
}
