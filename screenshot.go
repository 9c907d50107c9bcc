package montage

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Screenshot queues a labeled screenshot to be captured at the end of the
// current Draw call. The PNG is written to ScreenshotDir with a timestamped
// filename. Safe to call from Update or Draw.
func (p *Player) Screenshot(label string) {
	p.screenshotQueue = append(p.screenshotQueue, label)
}

// flushScreenshots captures the presented frame for every queued label.
func (p *Player) flushScreenshots(screen *ebiten.Image) {
	if len(p.screenshotQueue) == 0 {
		return
	}

	if err := os.MkdirAll(p.ScreenshotDir, 0o755); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[montage] screenshot: mkdir %s: %v\n", p.ScreenshotDir, err)
		p.screenshotQueue = p.screenshotQueue[:0]
		return
	}

	img := toNRGBA(screen)
	stamp := time.Now().Format("20060102_150405")
	for _, label := range p.screenshotQueue {
		path := filepath.Join(p.ScreenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, img); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[montage] screenshot: %v\n", err)
		}
	}
	p.screenshotQueue = p.screenshotQueue[:0]
}

// toNRGBA reads img back from the GPU and converts premultiplied RGBA to
// straight-alpha NRGBA.
func toNRGBA(src *ebiten.Image) *image.NRGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 4*w*h)
	src.ReadPixels(pixels)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(pixels); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// writePNG encodes an image to a PNG file at the given path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// --- PNG sequence ---

// PNGSequence is a FrameSink writing one numbered PNG per recorded frame:
// Dir/Prefix00000.png, Dir/Prefix00001.png, ...
type PNGSequence struct {
	Dir    string
	Prefix string

	frames int
	opened bool
}

// NewPNGSequence creates a sink writing into dir. The directory is created on
// the first frame.
func NewPNGSequence(dir, prefix string) *PNGSequence {
	return &PNGSequence{Dir: dir, Prefix: sanitizePrefix(prefix)}
}

func sanitizePrefix(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return "frame_"
	}
	return sanitizeLabel(prefix)
}

// FramePath returns the path of frame n.
func (s *PNGSequence) FramePath(n int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%05d.png", s.Prefix, n))
}

// Frames returns the number of frames written.
func (s *PNGSequence) Frames() int { return s.frames }

// WriteFrame implements FrameSink.
func (s *PNGSequence) WriteFrame(frame *ebiten.Image, _ float64) error {
	if !s.opened {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("png sequence: mkdir %s: %w", s.Dir, err)
		}
		s.opened = true
	}
	if err := writePNG(s.FramePath(s.frames), toNRGBA(frame)); err != nil {
		return fmt.Errorf("png sequence: %w", err)
	}
	s.frames++
	return nil
}

// Close implements FrameSink.
func (s *PNGSequence) Close() error { return nil }
