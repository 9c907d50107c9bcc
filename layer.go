package montage

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Layer is a time-bounded piece of content in a movie. One flat struct covers
// every kind of layer; Kind selects which of the optional sources are read.
//
// A layer is active while the movie time is in [StartTime, StartTime+Duration)
// and its "enabled" property is true. Its properties are resolved at the time
// since StartTime.
type Layer struct {
	Base

	Kind      LayerType
	StartTime float64
	Duration  float64

	// Effects apply to the layer's canvas after its content is drawn and
	// before it is composited. Only visual layers run them.
	Effects EffectList

	// OnStart and OnStop run when the layer becomes active or inactive.
	OnStart func(l *Layer)
	OnStop  func(l *Layer)

	// Image is the source of an image layer.
	Image *ebiten.Image
	// Media is the playback source of audio and video layers. A video layer's
	// Media is also a FrameSource.
	Media MediaSource
	// Face draws a text layer. nil uses a 7x13 bitmap face.
	Face text.Face

	canvas    *ebiten.Image
	active    bool
	bubbleSub Subscription
	seekSub   *Subscription
	drawOp    ebiten.DrawImageOptions
}

func newLayer(kind LayerType, start, duration float64, opts Options) (*Layer, error) {
	if duration < 0 || math.IsNaN(start) || math.IsNaN(duration) {
		return nil, fmt.Errorf("%w: layer window [%v, %v+%v)", ErrInvalidTime, start, start, duration)
	}
	l := &Layer{Kind: kind, StartTime: start, Duration: duration}
	if err := l.init(l, kind.String(), opts); err != nil {
		return nil, err
	}
	l.Effects = newList[Effect](l, "effect")
	return l, nil
}

// NewLayer creates a layer with timing only: it activates and runs its hooks
// but draws nothing.
func NewLayer(start, duration float64, opts Options) (*Layer, error) {
	return newLayer(LayerTypeBase, start, duration, opts)
}

// NewVisualLayer creates a layer that fills its canvas with its background.
func NewVisualLayer(start, duration float64, opts Options) (*Layer, error) {
	return newLayer(LayerTypeVisual, start, duration, opts)
}

// IsVisual reports whether the layer owns a canvas.
func (l *Layer) IsVisual() bool {
	switch l.Kind {
	case LayerTypeVisual, LayerTypeImage, LayerTypeText, LayerTypeVideo:
		return true
	}
	return false
}

// Active reports whether the layer is currently started.
func (l *Layer) Active() bool { return l.active }

// Canvas returns the layer's surface, nil before the first render or for
// non-visual layers.
func (l *Layer) Canvas() *ebiten.Image { return l.canvas }

// CurrentTime returns the movie time relative to StartTime.
func (l *Layer) CurrentTime() float64 {
	m := l.Movie()
	if m == nil {
		return 0
	}
	return m.currentTime - l.StartTime
}

// --- Activation ---

func (l *Layer) attach(target Entity) {
	l.parent = target
	l.bubbleSub = bubble(l, target)
	if m, ok := target.(*Movie); ok && l.Media != nil {
		sub := Subscribe(m, EventSeek, func(Event) {
			if l.active {
				if err := l.seekMedia(m.currentTime - l.StartTime); err != nil {
					m.fail(fmt.Errorf("layer %d: %w", l.id, err))
				}
			}
		})
		l.seekSub = &sub
	}
	Publish(l, EventLayerAttach, target)
}

func (l *Layer) detach() {
	if l.active {
		l.stop()
	}
	_ = Unsubscribe(l, l.bubbleSub)
	if l.seekSub != nil {
		if m, ok := l.parent.(*Movie); ok {
			_ = Unsubscribe(m, *l.seekSub)
		}
		l.seekSub = nil
	}
	Publish(l, EventLayerDetach, l.parent)
	l.parent = nil
}

// start activates the layer at the current movie time.
func (l *Layer) start() error {
	l.active = true
	if l.Media != nil {
		if err := l.startMedia(); err != nil {
			return err
		}
	}
	if l.OnStart != nil {
		l.OnStart(l)
	}
	Publish(l, EventLayerStart, nil)
	return nil
}

func (l *Layer) stop() {
	l.active = false
	if l.Media != nil {
		l.Media.Pause()
	}
	if l.OnStop != nil {
		l.OnStop(l)
	}
	Publish(l, EventLayerStop, nil)
}

// --- Rendering ---

// render draws the layer at time t since StartTime: begin sizes the canvas,
// do fills the background and draws content, end applies the layer effects.
func (l *Layer) render(t float64) error {
	if l.Media != nil {
		if err := l.applyVolume(t); err != nil {
			return err
		}
	}
	if !l.IsVisual() {
		return nil
	}
	if err := l.beginRender(t); err != nil {
		return err
	}
	if err := l.doRender(t); err != nil {
		return err
	}
	_, err := applyEffects(&l.Effects, l, t)
	return err
}

func (l *Layer) beginRender(t float64) error {
	w, err := Float(l, "width", t)
	if err != nil {
		return err
	}
	h, err := Float(l, "height", t)
	if err != nil {
		return err
	}
	iw := max(int(math.Ceil(w)), 1)
	ih := max(int(math.Ceil(h)), 1)
	if l.canvas != nil {
		if b := l.canvas.Bounds(); b.Dx() == iw && b.Dy() == ih {
			l.canvas.Clear()
			return nil
		}
		l.canvas.Deallocate()
	}
	l.canvas = ebiten.NewImage(iw, ih)
	return nil
}

func (l *Layer) doRender(t float64) error {
	bg, ok, err := ColorVal(l, "background", t)
	if err != nil {
		return err
	}
	if ok {
		l.canvas.Fill(bg.toRGBA())
	}
	switch l.Kind {
	case LayerTypeImage, LayerTypeVideo:
		return l.drawSource(t)
	case LayerTypeText:
		return l.drawText(t)
	}
	return nil
}

// composite draws the layer canvas onto dst at the resolved position,
// opacity and blend mode.
func (l *Layer) composite(dst *ebiten.Image, t float64) error {
	x, err := Float(l, "x", t)
	if err != nil {
		return err
	}
	y, err := Float(l, "y", t)
	if err != nil {
		return err
	}
	opacity, err := Float(l, "opacity", t)
	if err != nil {
		return err
	}
	raw, err := Val(l, "blendMode", t)
	if err != nil {
		return err
	}
	mode, err := blendModeFrom(raw)
	if err != nil {
		return err
	}
	op := &l.drawOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleAlpha(float32(clamp01(opacity)))
	op.Blend = mode.EbitenBlend()
	dst.DrawImage(l.canvas, op)
	return nil
}

// blendModeNames maps the names usable in option documents to blend modes.
var blendModeNames = map[string]BlendMode{
	"normal":   BlendNormal,
	"add":      BlendAdd,
	"multiply": BlendMultiply,
	"screen":   BlendScreen,
	"erase":    BlendErase,
	"below":    BlendBelow,
	"none":     BlendNone,
}

func blendModeFrom(v any) (BlendMode, error) {
	switch b := v.(type) {
	case BlendMode:
		return b, nil
	case string:
		if mode, ok := blendModeNames[b]; ok {
			return mode, nil
		}
	case nil:
		return BlendNormal, nil
	}
	return BlendNormal, fmt.Errorf("%w: blend mode %v", ErrPropertyType, v)
}

// --- Size fallbacks ---

func init() {
	// Visual layers default to the movie's size.
	RegisterPropertyFilter("layer.visual", "width", movieSizeFilter("width"))
	RegisterPropertyFilter("layer.visual", "height", movieSizeFilter("height"))

	// Image layers: clip → source size, dest → clip size, layer → dest size.
	RegisterPropertyFilter("layer.visual.image", "clipWidth", sourceSizeFilter(true))
	RegisterPropertyFilter("layer.visual.image", "clipHeight", sourceSizeFilter(false))
	RegisterPropertyFilter("layer.visual.image", "destWidth", fallbackFilter("clipWidth"))
	RegisterPropertyFilter("layer.visual.image", "destHeight", fallbackFilter("clipHeight"))
	RegisterPropertyFilter("layer.visual.image", "width", fallbackFilter("destWidth"))
	RegisterPropertyFilter("layer.visual.image", "height", fallbackFilter("destHeight"))
}

func movieSizeFilter(prop string) PropertyFilter {
	return func(e Entity, v any) (any, error) {
		if v != nil {
			return v, nil
		}
		m := e.entity().Movie()
		if m == nil {
			return 0.0, nil
		}
		return Val(m, prop, m.currentTime)
	}
}

func fallbackFilter(prop string) PropertyFilter {
	return func(e Entity, v any) (any, error) {
		if v != nil {
			return v, nil
		}
		return Val(e, prop, CurrentTime(e))
	}
}

func sourceSizeFilter(width bool) PropertyFilter {
	return func(e Entity, v any) (any, error) {
		if v != nil {
			return v, nil
		}
		l, ok := e.(*Layer)
		if !ok {
			return 0.0, nil
		}
		src := l.source()
		if src == nil {
			return 0.0, nil
		}
		if width {
			return float64(src.Bounds().Dx()), nil
		}
		return float64(src.Bounds().Dy()), nil
	}
}
