package glow

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// DefaultMaxPixels is the default allocation budget of a Buffer.
const DefaultMaxPixels = 16 << 20

var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("glow: invalid dimensions")

	// ErrBufferTooLarge is returned when a buffer would exceed its
	// pixel budget.
	ErrBufferTooLarge = errors.New("glow: buffer exceeds pixel budget")
)

// Buffer is a premultiplied RGBA float32 pixel buffer.
// Buffer is not safe for concurrent use.
type Buffer struct {
	width  int
	height int
	pix    []float32
}

// New allocates a width x height buffer. maxPixels bounds the allocation;
// values <= 0 select DefaultMaxPixels.
func New(width, height, maxPixels int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if width > maxPixels/height {
		return nil, fmt.Errorf("%w: %dx%d > %d pixels", ErrBufferTooLarge, width, height, maxPixels)
	}
	return &Buffer{
		width:  width,
		height: height,
		pix:    make([]float32, width*height*4),
	}, nil
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// Pix returns the raw premultiplied RGBA samples, 4 per pixel, row-major.
func (b *Buffer) Pix() []float32 { return b.pix }

// SameSize reports whether the buffer is width x height.
func (b *Buffer) SameSize(width, height int) bool {
	return b != nil && b.width == width && b.height == height
}

// Clear resets every pixel to transparent.
func (b *Buffer) Clear() {
	clear(b.pix)
}

// At returns the premultiplied color at (x, y), or transparent outside
// the buffer.
func (b *Buffer) At(x, y int) (r, g, bl, a float32) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, 0, 0, 0
	}
	i := (y*b.width + x) * 4
	return b.pix[i], b.pix[i+1], b.pix[i+2], b.pix[i+3]
}

// Energy returns the sum of the alpha channel over the whole buffer.
func (b *Buffer) Energy() float64 {
	var sum float64
	for i := 3; i < len(b.pix); i += 4 {
		sum += float64(b.pix[i])
	}
	return sum
}

// StampScreen draws a radially symmetric blob centered at (cx, cy) with
// the given radius. Each covered pixel takes the profile color at its
// normalized distance from the center and is combined with the buffer
// using the screen blend mode: dst = src + dst - src*dst per channel.
// Screen blending never darkens, so overlapping blobs brighten instead
// of occluding each other.
func (b *Buffer) StampScreen(cx, cy, radius float64, p Profile) {
	if radius <= 0 || len(p) == 0 {
		return
	}
	minX := max(int(math.Floor(cx-radius)), 0)
	maxX := min(int(math.Ceil(cx+radius)), b.width-1)
	minY := max(int(math.Floor(cy-radius)), 0)
	maxY := min(int(math.Ceil(cy+radius)), b.height-1)
	if minX > maxX || minY > maxY {
		return
	}

	inv := 1 / radius
	for y := minY; y <= maxY; y++ {
		dy := (float64(y) + 0.5 - cy) * inv
		row := y * b.width * 4
		for x := minX; x <= maxX; x++ {
			dx := (float64(x) + 0.5 - cx) * inv
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= 1 {
				continue
			}
			sr, sg, sb, sa := p.at(d)
			if sa <= 0 {
				continue
			}
			i := row + x*4
			b.pix[i+0] = screen(sr, b.pix[i+0])
			b.pix[i+1] = screen(sg, b.pix[i+1])
			b.pix[i+2] = screen(sb, b.pix[i+2])
			b.pix[i+3] = screen(sa, b.pix[i+3])
		}
	}
}

// screen applies B(s, d) = 1 - (1-s)*(1-d) = s + d - s*d.
func screen(s, d float32) float32 {
	return s + d - s*d
}

// NRGBA converts the region r of the buffer to a straight-alpha image
// whose bounds start at the origin. Pixels of r outside the buffer are
// transparent.
func (b *Buffer) NRGBA(r image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			pr, pg, pb, pa := b.At(r.Min.X+x, r.Min.Y+y)
			if pa <= 0 {
				continue
			}
			o := img.PixOffset(x, y)
			img.Pix[o+0] = toByte(pr / pa)
			img.Pix[o+1] = toByte(pg / pa)
			img.Pix[o+2] = toByte(pb / pa)
			img.Pix[o+3] = toByte(pa)
		}
	}
	return img
}

// toByte converts a [0, 1] sample to a byte, rounding to nearest.
func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
