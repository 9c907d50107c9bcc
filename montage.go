package montage

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs when the color is handed to Ebitengine.
//
// Color is a plain struct, so keyframes of Colors interpolate per component.
type Color struct {
	R, G, B, A float64
}

// Common colors.
var (
	ColorWhite       = Color{1, 1, 1, 1}
	ColorBlack       = Color{0, 0, 0, 1}
	ColorTransparent = Color{}
)

// Vec2 is a 2D vector used for positions, offsets and sizes.
type Vec2 struct {
	X, Y float64
}

// toRGBA converts the color to a premultiplied color.RGBA for ebiten.Image.Fill.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A)*255 + 0.5),
		G: uint8(clamp01(c.G*c.A)*255 + 0.5),
		B: uint8(clamp01(c.B*c.A)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

// colorFrom converts a resolved property value into a Color. Accepts Color,
// *Color, an {R, G, B, A} map and any color.Color. ok is false for anything
// else, including nil.
func colorFrom(v any) (Color, bool) {
	switch c := v.(type) {
	case Color:
		return c, true
	case *Color:
		if c == nil {
			return Color{}, false
		}
		return *c, true
	case map[string]any:
		// Decoded option documents carry colors as {R, G, B, A} maps.
		var out Color
		for _, ch := range [4]struct {
			key string
			dst *float64
		}{{"R", &out.R}, {"G", &out.G}, {"B", &out.B}, {"A", &out.A}} {
			f, ok := toFloat(c[ch.key])
			if !ok {
				return Color{}, false
			}
			*ch.dst = f
		}
		return out, true
	case color.Color:
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		return Color{
			R: float64(nc.R) / 255,
			G: float64(nc.G) / 255,
			B: float64(nc.B) / 255,
			A: float64(nc.A) / 255,
		}, true
	}
	return Color{}, false
}

// BlendMode selects a compositing operation. Each maps to a specific ebiten.Blend value.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
	BlendBelow                     // destination-over (draw behind existing content)
	BlendNone                      // opaque copy (skip blending)
)

// EbitenBlend returns the ebiten.Blend value corresponding to this BlendMode.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendNormal:
		return ebiten.BlendSourceOver
	case BlendAdd:
		return ebiten.BlendLighter
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendErase:
		return ebiten.BlendDestinationOut
	case BlendBelow:
		return ebiten.BlendDestinationOver
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// LayerType distinguishes the capabilities of a Layer.
type LayerType uint8

const (
	LayerTypeBase   LayerType = iota // timing only, no visual output
	LayerTypeVisual                  // owns a canvas and an effect list
	LayerTypeImage                   // visual layer drawing an image source
	LayerTypeText                    // visual layer drawing a line of text
	LayerTypeAudio                   // media-backed, no visual output
	LayerTypeVideo                   // visual layer drawing frames of a media source
)

// String returns the type tag segment used for defaults and filter lookup.
func (t LayerType) String() string {
	switch t {
	case LayerTypeVisual:
		return "layer.visual"
	case LayerTypeImage:
		return "layer.visual.image"
	case LayerTypeText:
		return "layer.visual.text"
	case LayerTypeAudio:
		return "layer.audio"
	case LayerTypeVideo:
		return "layer.visual.image.video"
	default:
		return "layer"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
