package filter

import (
	"sync"

	"github.com/gogpu/glowmap/internal/glow"
)

// Blur applies a separable Gaussian blur with the given sigma to buf in
// place. A non-positive sigma leaves buf unchanged.
func Blur(buf *glow.Buffer, sigma float64) {
	if buf == nil || sigma <= 0 {
		return
	}
	width, height := buf.Width(), buf.Height()
	kernel := CachedGaussianKernel(sigma)

	temp := getTempBuffer(width, height)
	defer putTempBuffer(temp)

	blurHorizontal(buf.Pix(), temp, width, height, kernel)
	blurVertical(temp, buf.Pix(), width, height, kernel)
}

// blurHorizontal convolves each row of src into temp.
func blurHorizontal(src, temp []float32, width, height int, kernel []float32) {
	half := len(kernel) / 2
	for y := 0; y < height; y++ {
		row := y * width * 4
		for x := 0; x < width; x++ {
			var r, g, b, a float32

			// Clip the kernel window to the row; samples outside are
			// transparent and contribute nothing.
			k0 := max(0, half-x)
			k1 := min(len(kernel), width-x+half)
			for k := k0; k < k1; k++ {
				i := row + (x+k-half)*4
				w := kernel[k]
				r += src[i+0] * w
				g += src[i+1] * w
				b += src[i+2] * w
				a += src[i+3] * w
			}

			o := row + x*4
			temp[o+0] = r
			temp[o+1] = g
			temp[o+2] = b
			temp[o+3] = a
		}
	}
}

// blurVertical convolves each column of temp into dst.
func blurVertical(temp, dst []float32, width, height int, kernel []float32) {
	half := len(kernel) / 2
	stride := width * 4
	for y := 0; y < height; y++ {
		k0 := max(0, half-y)
		k1 := min(len(kernel), height-y+half)
		for x := 0; x < width; x++ {
			var r, g, b, a float32
			col := x * 4
			for k := k0; k < k1; k++ {
				i := (y+k-half)*stride + col
				w := kernel[k]
				r += temp[i+0] * w
				g += temp[i+1] * w
				b += temp[i+2] * w
				a += temp[i+3] * w
			}

			o := y*stride + col
			dst[o+0] = r
			dst[o+1] = g
			dst[o+2] = b
			dst[o+3] = a
		}
	}
}

// floatBuffer wraps a slice for sync.Pool to avoid allocation warnings.
type floatBuffer struct {
	data []float32
}

var tempBufferPool = sync.Pool{
	New: func() any {
		return &floatBuffer{data: make([]float32, 512*512*4)}
	},
}

// getTempBuffer returns a scratch buffer of width*height*4 elements.
// Every element is overwritten by the horizontal pass, so it is not
// cleared.
func getTempBuffer(width, height int) []float32 {
	size := width * height * 4
	wrapper := tempBufferPool.Get().(*floatBuffer)
	if len(wrapper.data) < size {
		tempBufferPool.Put(wrapper)
		return make([]float32, size)
	}
	return wrapper.data[:size]
}

// putTempBuffer returns a scratch buffer to the pool.
func putTempBuffer(buf []float32) {
	// 64 MiB cap keeps one oversized frame from pinning memory.
	if cap(buf) <= 16*1024*1024 {
		tempBufferPool.Put(&floatBuffer{data: buf[:cap(buf)]})
	}
}
