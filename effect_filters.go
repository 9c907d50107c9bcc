package montage

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- Kage shader sources ---
// All shaders use //kage:unit pixels as required by Ebitengine.
// Ebitengine uses premultiplied alpha; shaders un-premultiply before processing
// and re-premultiply output where needed.

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	// Un-premultiply alpha.
	if c.a > 0 {
		c.rgb /= c.a
	}
	// Apply 4x5 color matrix (row-major, offset in elements 4,9,14,19).
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	// Clamp and re-premultiply.
	r = clamp(r, 0, 1)
	g = clamp(g, 0, 1)
	b = clamp(b, 0, 1)
	a = clamp(a, 0, 1)
	return vec4(r*a, g*a, b*a, a)
}
`

// --- Lazy shader compilation (no sync.Once; montage is single-threaded) ---

var colorMatrixShader *ebiten.Shader

func ensureColorMatrixShader() *ebiten.Shader {
	if colorMatrixShader == nil {
		s, err := ebiten.NewShader([]byte(colorMatrixShaderSrc))
		if err != nil {
			panic("montage: failed to compile color matrix shader: " + err.Error())
		}
		colorMatrixShader = s
	}
	return colorMatrixShader
}

// --- Color matrices ---

// identityColorMatrix leaves colors unchanged. Row-major 4x5:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...].
var identityColorMatrix = [20]float64{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// BrightnessMatrix adds b (in [-1, 1]) to every color channel.
func BrightnessMatrix(b float64) [20]float64 {
	return [20]float64{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	}
}

// ContrastMatrix scales channels around mid-gray. c=1 is normal, 0 is gray.
func ContrastMatrix(c float64) [20]float64 {
	t := (1.0 - c) / 2.0
	return [20]float64{
		c, 0, 0, 0, t,
		0, c, 0, 0, t,
		0, 0, c, 0, t,
		0, 0, 0, 1, 0,
	}
}

// SaturationMatrix mixes each channel toward luminance. s=1 is normal, 0 is
// grayscale.
func SaturationMatrix(s float64) [20]float64 {
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	return [20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// matrixFrom accepts a [20]float64, a []float64 or a []any of 20 numbers (as
// decoded from YAML).
func matrixFrom(v any) ([20]float64, error) {
	var m [20]float64
	switch mv := v.(type) {
	case [20]float64:
		return mv, nil
	case []float64:
		if len(mv) != 20 {
			return m, fmt.Errorf("%w: color matrix has %d entries, want 20", ErrPropertyType, len(mv))
		}
		copy(m[:], mv)
		return m, nil
	case []any:
		if len(mv) != 20 {
			return m, fmt.Errorf("%w: color matrix has %d entries, want 20", ErrPropertyType, len(mv))
		}
		for i, x := range mv {
			f, ok := toFloat(x)
			if !ok {
				return m, fmt.Errorf("%w: color matrix entry %d is %T", ErrPropertyType, i, x)
			}
			m[i] = f
		}
		return m, nil
	}
	return m, fmt.Errorf("%w: color matrix is %T", ErrPropertyType, v)
}

// --- ColorMatrix ---

// ColorMatrix applies a 4x5 color matrix to its target with a Kage shader.
// The brightness, contrast, saturation and grayscale effects are color
// matrices built from their own keyframable property.
type ColorMatrix struct {
	EffectBase

	build       func(t float64) ([20]float64, error)
	uniforms    map[string]any
	matrixF32   [20]float32 // persistent buffer to avoid per-frame slice escape
	matrixSlice []float32   // persistent slice header pointing into matrixF32
	shaderOp    ebiten.DrawRectShaderOptions
}

func newColorMatrix(typ string, opts Options, build func(cm *ColorMatrix, t float64) ([20]float64, error)) (*ColorMatrix, error) {
	cm := &ColorMatrix{uniforms: make(map[string]any, 1)}
	if err := cm.Init(cm, typ, opts); err != nil {
		return nil, err
	}
	cm.matrixSlice = cm.matrixF32[:]
	cm.uniforms["Matrix"] = cm.matrixSlice
	cm.build = func(t float64) ([20]float64, error) { return build(cm, t) }
	return cm, nil
}

// NewColorMatrix creates an effect applying the "matrix" property.
func NewColorMatrix(opts Options) (*ColorMatrix, error) {
	return newColorMatrix("effect.colormatrix", opts, func(cm *ColorMatrix, t float64) ([20]float64, error) {
		v, err := Val(cm, "matrix", t)
		if err != nil {
			return [20]float64{}, err
		}
		return matrixFrom(v)
	})
}

// NewBrightness creates an effect adding the "brightness" property to every
// channel.
func NewBrightness(opts Options) (*ColorMatrix, error) {
	return newColorMatrix("effect.brightness", opts, func(cm *ColorMatrix, t float64) ([20]float64, error) {
		b, err := Float(cm, "brightness", t)
		return BrightnessMatrix(b), err
	})
}

// NewContrast creates an effect scaling contrast by the "contrast" property.
func NewContrast(opts Options) (*ColorMatrix, error) {
	return newColorMatrix("effect.contrast", opts, func(cm *ColorMatrix, t float64) ([20]float64, error) {
		c, err := Float(cm, "contrast", t)
		return ContrastMatrix(c), err
	})
}

// NewSaturation creates an effect scaling saturation by the "saturation"
// property.
func NewSaturation(opts Options) (*ColorMatrix, error) {
	return newColorMatrix("effect.saturation", opts, func(cm *ColorMatrix, t float64) ([20]float64, error) {
		s, err := Float(cm, "saturation", t)
		return SaturationMatrix(s), err
	})
}

// NewGrayscale creates an effect removing all color.
func NewGrayscale(opts Options) (*ColorMatrix, error) {
	return newColorMatrix("effect.grayscale", opts, func(*ColorMatrix, float64) ([20]float64, error) {
		return SaturationMatrix(0), nil
	})
}

// Matrix returns the matrix the effect applies at time t.
func (cm *ColorMatrix) Matrix(t float64) ([20]float64, error) {
	return cm.build(t)
}

// Apply transforms the target canvas through the matrix.
func (cm *ColorMatrix) Apply(target Target, t float64) error {
	canvas := target.Canvas()
	if canvas == nil {
		return nil
	}
	m, err := cm.build(t)
	if err != nil {
		return err
	}
	if m == identityColorMatrix {
		return nil
	}
	for i, v := range m {
		cm.matrixF32[i] = float32(v)
	}
	full, src := scratchFor(canvas)
	defer scratch.Release(full)
	copyInto(src, canvas)

	b := canvas.Bounds()
	cm.shaderOp.Images[0] = src
	cm.shaderOp.Uniforms = cm.uniforms
	cm.shaderOp.Blend = ebiten.BlendCopy
	canvas.DrawRectShader(b.Dx(), b.Dy(), ensureColorMatrixShader(), &cm.shaderOp)
	return nil
}

// --- Blur ---

// Blur applies a Kawase iterative blur using downscale/upscale passes. The
// "radius" property is in pixels. No Kage shader needed; bilinear filtering
// during DrawImage does the work.
type Blur struct {
	EffectBase
	temps []*ebiten.Image
	imgOp ebiten.DrawImageOptions
}

// NewBlur creates a blur effect.
func NewBlur(opts Options) (*Blur, error) {
	b := &Blur{}
	if err := b.Init(b, "effect.blur", opts); err != nil {
		return nil, err
	}
	b.OnDetach = b.release
	return b, nil
}

// blurPasses returns the number of downscale passes used for radius.
func blurPasses(radius float64) int {
	if radius <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(radius)))
}

// Apply blurs the target canvas.
func (b *Blur) Apply(target Target, t float64) error {
	canvas := target.Canvas()
	if canvas == nil {
		return nil
	}
	radius, err := Float(b, "radius", t)
	if err != nil {
		return err
	}
	if radius <= 0 {
		return nil
	}
	passes := blurPasses(radius)

	for len(b.temps) < passes {
		b.temps = append(b.temps, nil)
	}
	// Deallocate excess temp images from a previous larger radius.
	for i := passes; i < len(b.temps); i++ {
		if b.temps[i] != nil {
			b.temps[i].Deallocate()
			b.temps[i] = nil
		}
	}
	b.temps = b.temps[:passes]

	op := &b.imgOp
	bounds := canvas.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Downscale passes: each half-size.
	current := canvas
	for i := 0; i < passes; i++ {
		w = max(w/2, 1)
		h = max(h/2, 1)
		if b.temps[i] == nil || b.temps[i].Bounds().Dx() != w || b.temps[i].Bounds().Dy() != h {
			if b.temps[i] != nil {
				b.temps[i].Deallocate()
			}
			b.temps[i] = ebiten.NewImage(w, h)
		} else {
			b.temps[i].Clear()
		}
		drawScaled(b.temps[i], current, op)
		current = b.temps[i]
	}

	// Upscale passes: draw each back up.
	for i := passes - 2; i >= 0; i-- {
		b.temps[i].Clear()
		drawScaled(b.temps[i], current, op)
		current = b.temps[i]
	}

	canvas.Clear()
	drawScaled(canvas, current, op)
	return nil
}

func (b *Blur) release() {
	for _, img := range b.temps {
		if img != nil {
			img.Deallocate()
		}
	}
	b.temps = nil
}

// drawScaled draws src stretched over all of dst with linear filtering.
func drawScaled(dst, src *ebiten.Image, op *ebiten.DrawImageOptions) {
	op.GeoM.Reset()
	op.ColorScale.Reset()
	sw := float64(src.Bounds().Dx())
	sh := float64(src.Bounds().Dy())
	tw := float64(dst.Bounds().Dx())
	th := float64(dst.Bounds().Dy())
	op.GeoM.Scale(tw/sw, th/sh)
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, op)
}

// --- Outline ---

// Outline draws the target's content in 8 cardinal/diagonal offsets with the
// "color" property, then the original on top. "thickness" is in pixels.
type Outline struct {
	EffectBase
	imgOp ebiten.DrawImageOptions
}

// NewOutline creates an outline effect.
func NewOutline(opts Options) (*Outline, error) {
	o := &Outline{}
	if err := o.Init(o, "effect.outline", opts); err != nil {
		return nil, err
	}
	return o, nil
}

// Apply outlines the target canvas.
func (o *Outline) Apply(target Target, t float64) error {
	canvas := target.Canvas()
	if canvas == nil {
		return nil
	}
	thickness, err := Float(o, "thickness", t)
	if err != nil {
		return err
	}
	c, ok, err := ColorVal(o, "color", t)
	if err != nil || !ok || thickness <= 0 {
		return err
	}

	full, src := scratchFor(canvas)
	defer scratch.Release(full)
	copyInto(src, canvas)
	canvas.Clear()

	offsets := [8][2]float64{
		{-thickness, 0}, {thickness, 0}, {0, -thickness}, {0, thickness},
		{-thickness, -thickness}, {thickness, -thickness}, {-thickness, thickness}, {thickness, thickness},
	}
	op := &o.imgOp
	for _, off := range offsets {
		op.GeoM.Reset()
		op.ColorScale.Reset()
		op.GeoM.Translate(off[0], off[1])
		op.ColorScale.Scale(
			float32(c.R*c.A),
			float32(c.G*c.A),
			float32(c.B*c.A),
			float32(c.A),
		)
		canvas.DrawImage(src, op)
	}

	op.GeoM.Reset()
	op.ColorScale.Reset()
	canvas.DrawImage(src, op)
	return nil
}

// --- Shader ---

// Shader wraps a user-provided Kage shader. Every entry of the "uniforms"
// property is resolved at the target's time, so uniforms can be keyframed
// individually ("uniforms.Strength"). Images[0] is the target's content; the
// user may set Images[1] and Images[2] for additional textures.
type Shader struct {
	EffectBase
	Kage     *ebiten.Shader
	Images   [3]*ebiten.Image
	uniforms map[string]any
	shaderOp ebiten.DrawRectShaderOptions
}

// NewShader creates a shader effect. src is Kage source.
func NewShader(src []byte, opts Options) (*Shader, error) {
	kage, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	s := &Shader{Kage: kage, uniforms: make(map[string]any)}
	if err := s.Init(s, "effect.shader", opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply runs the shader over the target canvas.
func (s *Shader) Apply(target Target, t float64) error {
	canvas := target.Canvas()
	if canvas == nil {
		return nil
	}
	raw, err := Val(s, "uniforms", t)
	if err != nil {
		return err
	}
	clear(s.uniforms)
	if names, ok := raw.(map[string]any); ok {
		for name := range names {
			v, err := Val(s, "uniforms."+name, t)
			if err != nil {
				return err
			}
			u, err := uniformValue(v)
			if err != nil {
				return fmt.Errorf("uniform %s: %w", name, err)
			}
			s.uniforms[name] = u
		}
	}

	full, src := scratchFor(canvas)
	defer scratch.Release(full)
	copyInto(src, canvas)

	b := canvas.Bounds()
	s.shaderOp.Images[0] = src
	s.shaderOp.Images[1] = s.Images[1]
	s.shaderOp.Images[2] = s.Images[2]
	s.shaderOp.Uniforms = s.uniforms
	s.shaderOp.Blend = ebiten.BlendCopy
	canvas.DrawRectShader(b.Dx(), b.Dy(), s.Kage, &s.shaderOp)
	return nil
}

// uniformValue converts a resolved property value into a Kage uniform.
// Colors are premultiplied.
func uniformValue(v any) (any, error) {
	if c, ok := colorFrom(v); ok {
		return []float32{float32(c.R * c.A), float32(c.G * c.A), float32(c.B * c.A), float32(c.A)}, nil
	}
	switch uv := v.(type) {
	case Vec2:
		return []float32{float32(uv.X), float32(uv.Y)}, nil
	case []float64:
		out := make([]float32, len(uv))
		for i, f := range uv {
			out[i] = float32(f)
		}
		return out, nil
	case []any:
		out := make([]float32, len(uv))
		for i, x := range uv {
			f, ok := toFloat(x)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrPropertyType, i, x)
			}
			out[i] = float32(f)
		}
		return out, nil
	}
	if f, ok := toFloat(v); ok {
		return float32(f), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrPropertyType, v)
}

// --- Stack ---

// Stack groups effects so they can be reused and toggled as one.
type Stack struct {
	EffectBase
	Effects EffectList
}

// NewStack creates a stack holding effects.
func NewStack(opts Options, effects ...Effect) (*Stack, error) {
	s := &Stack{}
	if err := s.Init(s, "effect.stack", opts); err != nil {
		return nil, err
	}
	s.Effects = newList[Effect](s, "effect")
	s.Effects.Append(effects...)
	return s, nil
}

// Apply runs the stacked effects in order on target.
func (s *Stack) Apply(target Target, t float64) error {
	_, err := applyEffects(&s.Effects, target, t)
	return err
}
