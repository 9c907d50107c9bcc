package montage

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

// canvasTarget is an effect target with a fixed canvas.
type canvasTarget struct {
	Entity
	img *ebiten.Image
}

func (c canvasTarget) Canvas() *ebiten.Image { return c.img }

// --- Matrices ---

func TestBrightnessMatrix(t *testing.T) {
	m := BrightnessMatrix(0.2)
	for _, i := range []int{4, 9, 14} {
		if m[i] != 0.2 {
			t.Errorf("offset[%d] = %v, want 0.2", i, m[i])
		}
	}
	if m[19] != 0 {
		t.Errorf("alpha offset = %v, want 0", m[19])
	}
	if BrightnessMatrix(0) != identityColorMatrix {
		t.Error("BrightnessMatrix(0) should be identity")
	}
}

func TestContrastMatrix(t *testing.T) {
	if ContrastMatrix(1) != identityColorMatrix {
		t.Error("ContrastMatrix(1) should be identity")
	}
	m := ContrastMatrix(0)
	if m[0] != 0 || m[4] != 0.5 {
		t.Errorf("ContrastMatrix(0) R row = %v, want scale 0 offset 0.5", m[0:5])
	}
}

func TestSaturationMatrix(t *testing.T) {
	if SaturationMatrix(1) != identityColorMatrix {
		t.Error("SaturationMatrix(1) should be identity")
	}
	m := SaturationMatrix(0)
	for row := 0; row < 3; row++ {
		sum := m[row*5] + m[row*5+1] + m[row*5+2]
		if !approxEqual(sum, 1, 1e-12) {
			t.Errorf("row %d sums to %v, want 1", row, sum)
		}
		if m[row*5] != m[0] || m[row*5+1] != m[1] {
			t.Errorf("row %d differs from row 0 in a grayscale matrix", row)
		}
	}
}

func TestMatrixFrom(t *testing.T) {
	fromYAML := make([]any, 20)
	for i := range fromYAML {
		fromYAML[i] = identityColorMatrix[i]
	}
	tests := []struct {
		name    string
		in      any
		wantErr bool
	}{
		{"array", identityColorMatrix, false},
		{"float slice", identityColorMatrix[:], false},
		{"any slice", fromYAML, false},
		{"short slice", []float64{1, 2}, true},
		{"short any slice", []any{1.0}, true},
		{"non-number entry", append(append([]any{}, fromYAML[:19]...), "x"), true},
		{"string", "identity", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matrixFrom(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrPropertyType) {
					t.Errorf("err = %v, want ErrPropertyType", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != identityColorMatrix {
				t.Errorf("got %v, want identity", got)
			}
		})
	}
}

// --- ColorMatrix effects ---

func TestColorMatrixEffectsResolveAtTime(t *testing.T) {
	bright, err := NewBrightness(Options{
		"brightness": NewKeyframes(Key(0, 0.0), Key(2, 1.0)),
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := bright.Matrix(1)
	if err != nil {
		t.Fatal(err)
	}
	if m != BrightnessMatrix(0.5) {
		t.Errorf("brightness matrix at 1 = %v, want BrightnessMatrix(0.5)", m)
	}

	gray, err := NewGrayscale(nil)
	if err != nil {
		t.Fatal(err)
	}
	if m, _ := gray.Matrix(0); m != SaturationMatrix(0) {
		t.Error("grayscale should be SaturationMatrix(0)")
	}

	sat, err := NewSaturation(Options{"saturation": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if m, _ := sat.Matrix(0); m != SaturationMatrix(0.5) {
		t.Error("saturation 0.5 matrix mismatch")
	}

	con, err := NewContrast(Options{"contrast": 2.0})
	if err != nil {
		t.Fatal(err)
	}
	if m, _ := con.Matrix(0); m != ContrastMatrix(2) {
		t.Error("contrast 2 matrix mismatch")
	}
}

func TestColorMatrixFromOptions(t *testing.T) {
	raw := make([]any, 20)
	for i := range raw {
		raw[i] = BrightnessMatrix(0.1)[i]
	}
	cm, err := NewColorMatrix(Options{"matrix": raw})
	if err != nil {
		t.Fatal(err)
	}
	m, err := cm.Matrix(0)
	if err != nil {
		t.Fatal(err)
	}
	if m != BrightnessMatrix(0.1) {
		t.Errorf("matrix = %v", m)
	}

	bad, err := NewColorMatrix(Options{"matrix": []float64{1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.Matrix(0); !errors.Is(err, ErrPropertyType) {
		t.Errorf("err = %v, want ErrPropertyType", err)
	}
}

func TestEffectType(t *testing.T) {
	b, err := NewBlur(nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Type() != "effect.blur" {
		t.Errorf("Type = %q, want effect.blur", b.Type())
	}
	if v, _ := b.Property("enabled"); v != true {
		t.Errorf("enabled default = %v, want true", v)
	}
}

func TestEffectInitWrongTypePanics(t *testing.T) {
	fx := &testEffect{}
	expectPanic(t, "Init", func() { _ = fx.Init(fx, "layer.fx", nil) })
}

func TestEffectsSkipNilCanvas(t *testing.T) {
	l := mustLayer(NewVisualLayer(0, 1, nil))
	blur, _ := NewBlur(Options{"radius": 4.0})
	outline, _ := NewOutline(nil)
	gray, _ := NewGrayscale(nil)
	for _, fx := range []Effect{blur, outline, gray} {
		if err := fx.Apply(l, 0); err != nil {
			t.Errorf("%s.Apply with nil canvas: %v", fx.entity().typ, err)
		}
	}
}

// --- Blur ---

func TestBlurPasses(t *testing.T) {
	tests := []struct {
		radius float64
		want   int
	}{
		{0.5, 1},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{16, 4},
		{17, 5},
	}
	for _, tt := range tests {
		if got := blurPasses(tt.radius); got != tt.want {
			t.Errorf("blurPasses(%v) = %d, want %d", tt.radius, got, tt.want)
		}
	}
}

func TestBlurTempsFollowRadius(t *testing.T) {
	l := mustLayer(NewVisualLayer(0, 1, nil))
	tgt := canvasTarget{Entity: l, img: ebiten.NewImage(64, 64)}
	b, err := NewBlur(Options{"radius": 8.0})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Apply(tgt, 0); err != nil {
		t.Fatal(err)
	}
	if len(b.temps) != 3 {
		t.Fatalf("temps = %d, want 3", len(b.temps))
	}
	for i, want := range []int{32, 16, 8} {
		if w := b.temps[i].Bounds().Dx(); w != want {
			t.Errorf("temps[%d] width = %d, want %d", i, w, want)
		}
	}

	if err := b.Set("radius", 2.0); err != nil {
		t.Fatal(err)
	}
	if err := b.Apply(tgt, 0); err != nil {
		t.Fatal(err)
	}
	if len(b.temps) != 1 {
		t.Errorf("temps after shrinking radius = %d, want 1", len(b.temps))
	}

	l.Effects.Append(b)
	l.Effects.Remove(b)
	if b.temps != nil {
		t.Error("detach should release blur temps")
	}
}

func TestBlurZeroRadiusNoOp(t *testing.T) {
	l := mustLayer(NewVisualLayer(0, 1, nil))
	b, _ := NewBlur(nil)
	if err := b.Apply(canvasTarget{Entity: l, img: ebiten.NewImage(8, 8)}, 0); err != nil {
		t.Fatal(err)
	}
	if len(b.temps) != 0 {
		t.Errorf("temps = %d, want 0 for radius 0", len(b.temps))
	}
}

// --- Shader ---

func TestUniformValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"float", 0.5, float32(0.5)},
		{"int", 3, float32(3)},
		{"vec2", Vec2{1, 2}, []float32{1, 2}},
		{"color premultiplied", Color{1, 0.5, 0, 0.5}, []float32{0.5, 0.25, 0, 0.5}},
		{"float slice", []float64{1, 2, 3}, []float32{1, 2, 3}},
		{"any slice", []any{1.0, 2}, []float32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uniformValue(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			switch want := tt.want.(type) {
			case float32:
				if got != want {
					t.Errorf("got %v, want %v", got, want)
				}
			case []float32:
				gs, ok := got.([]float32)
				if !ok || len(gs) != len(want) {
					t.Fatalf("got %#v, want %v", got, want)
				}
				for i := range want {
					if gs[i] != want[i] {
						t.Errorf("[%d] = %v, want %v", i, gs[i], want[i])
					}
				}
			}
		})
	}
}

func TestUniformValueErrors(t *testing.T) {
	for _, in := range []any{"text", []any{"x"}, nil} {
		if _, err := uniformValue(in); !errors.Is(err, ErrPropertyType) {
			t.Errorf("uniformValue(%#v) err = %v, want ErrPropertyType", in, err)
		}
	}
}

func TestNewShaderCompileError(t *testing.T) {
	if _, err := NewShader([]byte("this is not kage"), nil); err == nil {
		t.Error("expected a compile error")
	}
}

// --- Stack ---

func TestStackAppliesInOrder(t *testing.T) {
	var log []string
	a := newTestEffect(t, "a", &log, nil)
	b := newTestEffect(t, "b", &log, nil)
	s, err := NewStack(nil, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if a.Target() != Entity(s) {
		t.Error("stacked effects should target the stack")
	}

	l := mustLayer(NewVisualLayer(0, 1, nil))
	if err := s.Apply(l, 0); err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 || log[0] != "a" || log[1] != "b" {
		t.Errorf("applied %v, want [a b]", log)
	}
}

func TestStackPropagatesErrors(t *testing.T) {
	inner := newTestEffect(t, "inner", nil, nil)
	inner.err = errors.New("inner failed")
	s, err := NewStack(nil, inner)
	if err != nil {
		t.Fatal(err)
	}
	l := mustLayer(NewVisualLayer(0, 1, nil))
	if err := s.Apply(l, 0); !errors.Is(err, inner.err) {
		t.Errorf("err = %v, want the inner error", err)
	}
}

// --- Rendering ---

func TestBuiltinEffectsRender(t *testing.T) {
	m, sched, _ := quietMovie(t, Options{"width": 32.0, "height": 32.0})
	var reported error
	m.OnError = func(err error) { reported = err }

	l := mustLayer(NewVisualLayer(0, 1, Options{"background": ColorWhite}))
	blur, _ := NewBlur(Options{"radius": 4.0})
	outline, _ := NewOutline(Options{"thickness": 2.0})
	bright, _ := NewBrightness(Options{"brightness": 0.1})
	gray, _ := NewGrayscale(nil)
	l.Effects.Append(blur, outline)
	m.Effects.Append(bright, gray)
	m.Layers.Append(l)

	m.Refresh(nil)
	sched.Step()
	if reported != nil {
		t.Fatalf("render failed: %v", reported)
	}
	if _, applied, _ := m.Stats(); applied != 2 {
		t.Errorf("movie effects applied = %d, want 2", applied)
	}
}
