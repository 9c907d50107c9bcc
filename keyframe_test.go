package montage

import (
	"errors"
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

// --- Evaluate ---

func TestEvaluateLinearSegments(t *testing.T) {
	ks := NewKeyframes(Key(0, 0.0), Key(2, 10.0), Key(4, 0.0))
	tests := []struct {
		t, want float64
	}{
		{0, 0},
		{1, 5},
		{2, 10},
		{3, 5},
		{4, 0},
		{100, 0},
	}
	for _, tt := range tests {
		got, err := ks.Evaluate(tt.t)
		if err != nil {
			t.Fatalf("Evaluate(%v): %v", tt.t, err)
		}
		if !approxEqual(got.(float64), tt.want, epsilon) {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestEvaluatePerSegmentInterpolator(t *testing.T) {
	ks := NewKeyframes(Key(0, 0.0, Cosine), Key(1, 1.0), Key(2, 0.0))
	got, err := ks.Evaluate(0.5)
	if err != nil {
		t.Fatal(err)
	}
	want := 1 - math.Cos(math.Pi/4)
	if !approxEqual(got.(float64), want, epsilon) {
		t.Errorf("cosine segment = %v, want %v", got, want)
	}

	got, err = ks.Evaluate(1.5)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(got.(float64), 0.5, epsilon) {
		t.Errorf("linear segment = %v, want 0.5", got)
	}
}

func TestEvaluateSingleKeyframe(t *testing.T) {
	ks := NewKeyframes(Key(1, "only"))
	got, err := ks.Evaluate(50)
	if err != nil {
		t.Fatal(err)
	}
	if got != "only" {
		t.Errorf("got %v, want only", got)
	}
}

func TestEvaluateStringSwitchesAtNextKeyframe(t *testing.T) {
	ks := NewKeyframes(Key(0, "a"), Key(1, "b"))
	tests := []struct {
		t    float64
		want string
	}{
		{0, "a"},
		{0.999, "a"},
		{1, "b"},
		{3, "b"},
	}
	for _, tt := range tests {
		got, err := ks.Evaluate(tt.t)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestEvaluateObjects(t *testing.T) {
	ks := NewKeyframes(Key(0, Vec2{0, 0}), Key(1, Vec2{10, 20}))
	got, err := ks.Evaluate(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got.(Vec2) != (Vec2{5, 10}) {
		t.Errorf("got %+v, want {5 10}", got)
	}
}

func TestEvaluateInterpolationKeys(t *testing.T) {
	ks := NewKeyframes(Key(0, Vec2{0, 0}), Key(1, Vec2{10, 20})).WithKeys("Y")
	got, err := ks.Evaluate(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if got.(Vec2) != (Vec2{0, 10}) {
		t.Errorf("got %+v, want {0 10}", got)
	}
}

// --- Evaluate errors ---

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		ks   *KeyframeSet
		t    float64
		want error
	}{
		{"empty", NewKeyframes(), 0, ErrNoKeyframes},
		{"nan", NewKeyframes(Key(0, 1.0)), math.NaN(), ErrInvalidTime},
		{"before first", NewKeyframes(Key(1, 1.0), Key(2, 2.0)), 0.5, ErrBeforeFirstKeyframe},
		{"number to string", NewKeyframes(Key(0, 1.0), Key(1, "x")), 0.5, ErrTypeMismatch},
		{"struct prototypes", NewKeyframes(Key(0, Vec2{}), Key(1, Color{})), 0.5, ErrPrototypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ks.Evaluate(tt.t)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// --- YAML ---

func decodeKeyframes(t *testing.T, src string) *KeyframeSet {
	t.Helper()
	var ks KeyframeSet
	if err := yaml.Unmarshal([]byte(src), &ks); err != nil {
		t.Fatalf("unmarshal %q: %v", src, err)
	}
	return &ks
}

func TestKeyframesYAMLSequence(t *testing.T) {
	ks := decodeKeyframes(t, "[[0, 0], [2, 10, cosine], [4, 0]]")
	if ks.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ks.Len())
	}
	if ks.Points[1].Time != 2 {
		t.Errorf("Points[1].Time = %v, want 2", ks.Points[1].Time)
	}
	if ks.Points[0].Value != 0.0 {
		t.Errorf("Points[0].Value = %#v, want float64 0", ks.Points[0].Value)
	}
	if ks.Points[0].Interp != nil {
		t.Error("Points[0].Interp should be nil (linear)")
	}
	if ks.Points[1].Interp == nil {
		t.Error("Points[1].Interp should be set")
	}
	got, err := ks.Evaluate(1)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(got.(float64), 5, epsilon) {
		t.Errorf("Evaluate(1) = %v, want 5", got)
	}
}

func TestKeyframesYAMLMapping(t *testing.T) {
	ks := decodeKeyframes(t, `
points: [[0, {x: 0, y: 0}], [2, {x: 100, y: 50}]]
keys: [x]
`)
	if len(ks.InterpolationKeys) != 1 || ks.InterpolationKeys[0] != "x" {
		t.Fatalf("InterpolationKeys = %v, want [x]", ks.InterpolationKeys)
	}
	got, err := ks.Evaluate(1)
	if err != nil {
		t.Fatal(err)
	}
	m := got.(map[string]any)
	if m["x"] != 50.0 {
		t.Errorf("x = %v, want 50", m["x"])
	}
	if m["y"] != 0.0 {
		t.Errorf("y = %v, want 0", m["y"])
	}
}

func TestKeyframesYAMLErrors(t *testing.T) {
	tests := []struct {
		name, src string
	}{
		{"scalar", "3"},
		{"short point", "[[0]]"},
		{"long point", "[[0, 1, linear, extra]]"},
		{"unknown interpolator", "[[0, 1, wobble]]"},
		{"unknown key", "{points: [[0, 1]], speed: 2}"},
		{"missing points", "{keys: [x]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ks KeyframeSet
			if err := yaml.Unmarshal([]byte(tt.src), &ks); err == nil {
				t.Errorf("expected error for %q", tt.src)
			}
		})
	}
}

func TestRegisterInterpolator(t *testing.T) {
	half := func(a, b any, _ float64, keys []string) (any, error) {
		return Linear(a, b, 0.5, keys)
	}
	RegisterInterpolator("testHalf", half)
	defer delete(namedInterpolators, "testHalf")

	ks := decodeKeyframes(t, "[[0, 0, testHalf], [1, 10]]")
	got, err := ks.Evaluate(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if got.(float64) != 5 {
		t.Errorf("got %v, want 5", got)
	}
}
