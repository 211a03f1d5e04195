package wgimage

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

func TestNewKernel(t *testing.T) {
	tests := []struct {
		sigma    float32
		wantSize int
	}{
		{1e-30, 3},
		{1e-23, 3},
		{0.1, 3},
		{1, 7},
		{1.5, 11},
		{5, 31},
	}
	for _, tt := range tests {
		k, err := NewKernel(tt.sigma)
		if err != nil {
			t.Fatalf("NewKernel(%v) error = %v", tt.sigma, err)
		}
		if k.Size() != tt.wantSize {
			t.Errorf("NewKernel(%v).Size() = %d, want %d", tt.sigma, k.Size(), tt.wantSize)
		}
		if k.Radius() != (tt.wantSize-1)/2 {
			t.Errorf("NewKernel(%v).Radius() = %d, want %d", tt.sigma, k.Radius(), (tt.wantSize-1)/2)
		}
	}
}

func TestKernelSymmetricAndPeaked(t *testing.T) {
	k, err := NewKernel(5)
	if err != nil {
		t.Fatal(err)
	}
	n := k.Size()
	for i := 0; i < n/2; i++ {
		if k.Weights[i] != k.Weights[n-1-i] {
			t.Errorf("weights[%d] = %v, weights[%d] = %v, want equal", i, k.Weights[i], n-1-i, k.Weights[n-1-i])
		}
		if k.Weights[i] > k.Weights[i+1] {
			t.Errorf("weights not increasing toward center at %d", i)
		}
	}
}

func TestKernelSum(t *testing.T) {
	k, err := NewKernel(5)
	if err != nil {
		t.Fatal(err)
	}
	var sum float32
	for _, w := range k.Weights {
		sum += w
	}
	if math32.Abs(sum-k.Sum) > 1e-5 {
		t.Errorf("Sum = %v, weights add to %v", k.Sum, sum)
	}
	// 3 sigma covers nearly all of the unit mass.
	if math32.Abs(k.Sum-1) > 0.01 {
		t.Errorf("Sum = %v, want about 1", k.Sum)
	}

	packed := k.Packed()
	if len(packed) != k.Size()+1 {
		t.Fatalf("len(Packed()) = %d, want %d", len(packed), k.Size()+1)
	}
	if packed[0] != k.Sum {
		t.Errorf("Packed()[0] = %v, want Sum %v", packed[0], k.Sum)
	}
	if packed[1+k.Radius()] != k.Weights[k.Radius()] {
		t.Error("Packed() center weight out of place")
	}
}

func TestNewKernelIdentity(t *testing.T) {
	k, err := NewKernel(0)
	if err != nil {
		t.Fatalf("NewKernel(0) error = %v", err)
	}
	if k.Size() != 1 || k.Weights[0] != 1 || k.Sum != 1 {
		t.Errorf("NewKernel(0) = %+v, want identity", k)
	}
}

func TestNewKernelTinySigma(t *testing.T) {
	for _, sigma := range []float32{1e-23, 1e-30, 1e-38} {
		k, err := NewKernel(sigma)
		if err != nil {
			t.Fatalf("NewKernel(%v) error = %v", sigma, err)
		}
		for i, w := range k.Packed() {
			if math32.IsNaN(w) || math32.IsInf(w, 0) {
				t.Fatalf("NewKernel(%v).Packed()[%d] = %v", sigma, i, w)
			}
		}
		// Off-center taps vanish; the center carries all the mass.
		if k.Weights[k.Radius()] != k.Sum || k.Sum <= 0 {
			t.Errorf("NewKernel(%v): center %v, Sum %v", sigma, k.Weights[k.Radius()], k.Sum)
		}
	}

	// The peak weight would overflow; fall back to the identity.
	k, err := NewKernel(1e-40)
	if err != nil {
		t.Fatalf("NewKernel(1e-40) error = %v", err)
	}
	if k.Size() != 1 || k.Sum != 1 {
		t.Errorf("NewKernel(1e-40) = %+v, want identity", k)
	}
}

func TestNewKernelInvalid(t *testing.T) {
	for _, sigma := range []float32{-1, math32.NaN(), math32.Inf(1)} {
		if _, err := NewKernel(sigma); !errors.Is(err, ErrInvalidSigma) {
			t.Errorf("NewKernel(%v) error = %v, want ErrInvalidSigma", sigma, err)
		}
	}
}
