package wgimage

import (
	"fmt"

	"github.com/chewxy/math32"
)

// invSqrt2Pi is 1/sqrt(2*pi), the Gaussian normalization constant.
const invSqrt2Pi = 0.39894

// Kernel is a sampled one-dimensional Gaussian.
type Kernel struct {
	// Sum is the sum of Weights.
	Sum float32
	// Weights has odd length; the center weight is at index Radius().
	Weights []float32
}

// NewKernel samples a Gaussian with standard deviation sigma over
// 2*ceil(3*sigma)+1 taps. Sigma zero yields the identity kernel, as does
// a sigma so small that the peak weight overflows float32.
func NewKernel(sigma float32) (Kernel, error) {
	if math32.IsNaN(sigma) || sigma < 0 || math32.IsInf(sigma, 1) {
		return Kernel{}, fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}
	peak := invSqrt2Pi / sigma
	if sigma == 0 || math32.IsInf(peak, 1) {
		return Kernel{Sum: 1, Weights: []float32{1}}, nil
	}

	radius := int(math32.Ceil(3 * sigma))
	weights := make([]float32, 2*radius+1)
	var sum float32
	for i := range weights {
		// x/sigma is squared, not sigma itself, so subnormal sigmas
		// do not underflow to 0/0.
		u := float32(i-radius) / sigma
		w := peak * math32.Exp(-0.5*u*u)
		weights[i] = w
		sum += w
	}
	return Kernel{Sum: sum, Weights: weights}, nil
}

// Size returns the number of taps.
func (k Kernel) Size() int { return len(k.Weights) }

// Radius returns the number of taps on each side of the center.
func (k Kernel) Radius() int { return len(k.Weights) / 2 }

// Packed returns the layout the blur kernel reads: [Sum, w0, w1, ...].
func (k Kernel) Packed() []float32 {
	packed := make([]float32, 0, len(k.Weights)+1)
	packed = append(packed, k.Sum)
	return append(packed, k.Weights...)
}
