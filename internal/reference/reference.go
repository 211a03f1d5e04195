// Package reference implements the wgimage filters on the CPU.
//
// The results match the GPU kernels to within one unit per channel. The
// command line tool uses them when no adapter is available, and the GPU
// tests compare against them.
package reference

import (
	"image"
	"sync"
)

// BT.601 luma coefficients.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Grayscale returns a copy of src with RGB replaced by luma.
func Grayscale(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEachPixel(src, dst, func(in, out []uint8) {
		g := toUint8(luma(in) * 255)
		out[0], out[1], out[2], out[3] = g, g, g, in[3]
	})
	return dst
}

// Threshold returns a copy of src where pixels whose luma reaches cutoff
// (0..255) are white and all others black. Alpha is kept.
func Threshold(src *image.RGBA, cutoff uint32) *image.RGBA {
	level := float32(cutoff) / 255
	dst := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEachPixel(src, dst, func(in, out []uint8) {
		var v uint8
		if luma(in) >= level {
			v = 255
		}
		out[0], out[1], out[2], out[3] = v, v, v, in[3]
	})
	return dst
}

// Blur applies a separable convolution with weights, vertical pass first.
// sum is the total of weights; at the borders, taps outside the image are
// skipped and the result is divided by the weight actually used.
func Blur(src *image.RGBA, weights []float32, sum float32) *image.RGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	temp := getTempBuffer(w, h)
	defer putTempBuffer(temp)

	radius := len(weights) / 2
	origin := src.Bounds().Min

	// Pass 1: vertical (src -> temp). The intermediate is rounded to 8
	// bits, as the device stores it in an rgba8unorm texture.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float32
			var used float32
			for k, wt := range weights {
				sy := y + k - radius
				if sy < 0 || sy >= h {
					continue
				}
				p := src.Pix[src.PixOffset(origin.X+x, origin.Y+sy):]
				for c := 0; c < 4; c++ {
					acc[c] += float32(p[c]) * wt
				}
				used += wt
			}
			norm := sum
			if y < radius || y+radius >= h {
				norm = used
			}
			i := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				temp[i+c] = float32(toUint8(acc[c] / norm))
			}
		}
	}

	// Pass 2: horizontal (temp -> dst).
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float32
			var used float32
			for k, wt := range weights {
				sx := x + k - radius
				if sx < 0 || sx >= w {
					continue
				}
				i := (y*w + sx) * 4
				for c := 0; c < 4; c++ {
					acc[c] += temp[i+c] * wt
				}
				used += wt
			}
			norm := sum
			if x < radius || x+radius >= w {
				norm = used
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = toUint8(acc[c] / norm)
			}
		}
	}
	return dst
}

func luma(p []uint8) float32 {
	return (lumaR*float32(p[0]) + lumaG*float32(p[1]) + lumaB*float32(p[2])) / 255
}

func forEachPixel(src, dst *image.RGBA, fn func(in, out []uint8)) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			in := src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y):]
			out := dst.Pix[dst.PixOffset(x, y):]
			fn(in[:4], out[:4])
		}
	}
}

// toUint8 rounds v to the nearest byte, clamping to [0, 255].
func toUint8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// floatBuffer wraps a slice for sync.Pool to avoid allocation warnings.
type floatBuffer struct {
	data []float32
}

var tempBufferPool = sync.Pool{
	New: func() any {
		return &floatBuffer{}
	},
}

// getTempBuffer returns a pooled buffer of at least width*height*4 floats.
func getTempBuffer(width, height int) []float32 {
	size := width * height * 4
	wrapper := tempBufferPool.Get().(*floatBuffer)
	if cap(wrapper.data) < size {
		wrapper.data = make([]float32, size)
	}
	return wrapper.data[:size]
}

func putTempBuffer(buf []float32) {
	tempBufferPool.Put(&floatBuffer{data: buf})
}
