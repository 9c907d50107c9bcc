package montage

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// MediaSource is the playback boundary for audio and video layers. Decoding
// and audio output are the implementation's business; the layer only drives
// it and polls its readiness.
type MediaSource interface {
	// Ready reports whether enough data is available to present the current
	// position. While any active source is not ready, a refresh keeps
	// retrying on following frames.
	Ready() bool
	// Seek moves the playback position, in seconds of media time.
	Seek(t float64) error
	Play() error
	Pause()
	// SetVolume sets the output gain in [0, 1].
	SetVolume(v float64)
}

// FrameSource is a MediaSource with pictures.
type FrameSource interface {
	MediaSource
	// Frame returns the picture at the current position, or nil if none is
	// decoded yet.
	Frame() *ebiten.Image
}

// NewImageLayer creates a layer drawing img. The clip rectangle selects part
// of img; the dest rectangle places it on the layer canvas.
func NewImageLayer(start, duration float64, img *ebiten.Image, opts Options) (*Layer, error) {
	l, err := newLayer(LayerTypeImage, start, duration, opts)
	if err != nil {
		return nil, err
	}
	l.Image = img
	return l, nil
}

// NewAudioLayer creates a layer playing src while active.
func NewAudioLayer(start, duration float64, src MediaSource, opts Options) (*Layer, error) {
	l, err := newLayer(LayerTypeAudio, start, duration, opts)
	if err != nil {
		return nil, err
	}
	l.Media = src
	return l, nil
}

// NewVideoLayer creates a layer playing src and drawing its frames like an
// image layer.
func NewVideoLayer(start, duration float64, src FrameSource, opts Options) (*Layer, error) {
	l, err := newLayer(LayerTypeVideo, start, duration, opts)
	if err != nil {
		return nil, err
	}
	l.Media = src
	return l, nil
}

// HasAudioSource reports whether the layer drives a media source.
func (l *Layer) HasAudioSource() bool { return l.Media != nil }

// HasVisualSource reports whether the layer draws an image or video source.
func (l *Layer) HasVisualSource() bool {
	return l.Kind == LayerTypeImage || l.Kind == LayerTypeVideo
}

// source returns the picture to draw: the image, or the current video frame.
func (l *Layer) source() *ebiten.Image {
	if l.Image != nil {
		return l.Image
	}
	if fs, ok := l.Media.(FrameSource); ok {
		return fs.Frame()
	}
	return nil
}

func (l *Layer) drawSource(t float64) error {
	src := l.source()
	if src == nil {
		return nil
	}
	var r [8]float64
	for i, prop := range [8]string{"clipX", "clipY", "clipWidth", "clipHeight", "destX", "destY", "destWidth", "destHeight"} {
		v, err := Float(l, prop, t)
		if err != nil {
			return err
		}
		r[i] = v
	}
	clipX, clipY, clipW, clipH := r[0], r[1], r[2], r[3]
	destX, destY, destW, destH := r[4], r[5], r[6], r[7]
	if clipW <= 0 || clipH <= 0 {
		return nil
	}

	sb := src.Bounds()
	clip := image.Rect(
		sb.Min.X+int(clipX), sb.Min.Y+int(clipY),
		sb.Min.X+int(clipX+clipW), sb.Min.Y+int(clipY+clipH),
	).Intersect(sb)
	if clip.Empty() {
		return nil
	}
	sub := src.SubImage(clip).(*ebiten.Image)

	op := &l.drawOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.Blend = ebiten.BlendSourceOver
	op.GeoM.Scale(destW/clipW, destH/clipH)
	op.GeoM.Translate(destX, destY)
	op.Filter = ebiten.FilterLinear
	l.canvas.DrawImage(sub, op)
	return nil
}

// startMedia seeks the source to the layer's position and plays it if the
// movie is playing.
func (l *Layer) startMedia() error {
	rel := l.CurrentTime()
	if err := l.seekMedia(rel); err != nil {
		return err
	}
	if m := l.Movie(); m != nil && !m.paused {
		if err := l.Media.Play(); err != nil {
			return fmt.Errorf("media play: %w", err)
		}
	}
	return nil
}

// seekMedia moves the source to t seconds into the layer, offset by
// "mediaStartTime".
func (l *Layer) seekMedia(t float64) error {
	offset, err := Float(l, "mediaStartTime", t)
	if err != nil {
		return err
	}
	if err := l.Media.Seek(t + offset); err != nil {
		return fmt.Errorf("media seek: %w", err)
	}
	return nil
}

func (l *Layer) applyVolume(t float64) error {
	muted, err := Bool(l, "muted", t)
	if err != nil {
		return err
	}
	if muted {
		l.Media.SetVolume(0)
		return nil
	}
	vol, err := Float(l, "volume", t)
	if err != nil {
		return err
	}
	l.Media.SetVolume(clamp01(vol))
	return nil
}
