package montage

import (
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

// defaultFace is created on first use (no sync.Once; montage is single-threaded).
var defaultFace text.Face

func ensureDefaultFace() text.Face {
	if defaultFace == nil {
		defaultFace = text.NewGoXFace(basicfont.Face7x13)
	}
	return defaultFace
}

// NewTextLayer creates a layer drawing its "text" property in "color" at
// ("textX", "textY"). Lines are separated by '\n'.
func NewTextLayer(start, duration float64, opts Options) (*Layer, error) {
	return newLayer(LayerTypeText, start, duration, opts)
}

func (l *Layer) drawText(t float64) error {
	str, err := ValAs[string](l, "text", t)
	if err != nil || str == "" {
		return err
	}
	c, ok, err := ColorVal(l, "color", t)
	if err != nil || !ok {
		return err
	}
	x, err := Float(l, "textX", t)
	if err != nil {
		return err
	}
	y, err := Float(l, "textY", t)
	if err != nil {
		return err
	}

	face := l.Face
	if face == nil {
		face = ensureDefaultFace()
	}
	m := face.Metrics()

	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c.toRGBA())
	op.LineSpacing = m.HAscent + m.HDescent + m.HLineGap
	text.Draw(l.canvas, str, face, op)
	return nil
}
