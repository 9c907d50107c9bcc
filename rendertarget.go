package montage

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// --- Render texture pool ---

// renderTexturePool manages reusable offscreen ebiten.Images keyed by
// power-of-two dimensions. After warmup, Acquire/Release are zero-alloc.
type renderTexturePool struct {
	buckets map[uint64][]*ebiten.Image
}

// scratch is the pool effects draw their intermediate passes into.
var scratch renderTexturePool

// poolKey packs power-of-two width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared offscreen image with at least (w, h) pixels.
// Dimensions are rounded up to the next power of two.
func (p *renderTexturePool) Acquire(w, h int) *ebiten.Image {
	pw := nextPowerOfTwo(w)
	ph := nextPowerOfTwo(h)
	key := poolKey(pw, ph)

	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			img := stack[len(stack)-1]
			p.buckets[key] = stack[:len(stack)-1]
			img.Clear()
			return img
		}
	}

	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, pw, ph),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns an image to the pool for reuse. The image is cleared on
// next Acquire, not here.
func (p *renderTexturePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())

	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
}

// Len returns the number of pooled images.
func (p *renderTexturePool) Len() int {
	n := 0
	for _, stack := range p.buckets {
		n += len(stack)
	}
	return n
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}

// --- Scratch surfaces ---

// scratchFor acquires a pooled image large enough for dst and returns it along
// with its (w, h) sub-image. Release the full image, not the view.
func scratchFor(dst *ebiten.Image) (full, view *ebiten.Image) {
	b := dst.Bounds()
	full = scratch.Acquire(b.Dx(), b.Dy())
	view = full.SubImage(image.Rect(0, 0, b.Dx(), b.Dy())).(*ebiten.Image)
	return full, view
}

// copyInto replaces dst's content with src drawn at the origin.
func copyInto(dst, src *ebiten.Image) {
	dst.Clear()
	var op ebiten.DrawImageOptions
	op.Blend = ebiten.BlendCopy
	dst.DrawImage(src, &op)
}
