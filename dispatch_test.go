package wgimage

import "testing"

func TestComputeWorkGroupCount(t *testing.T) {
	tests := []struct {
		name         string
		w, h, gw, gh uint32
		wantX, wantY uint32
	}{
		{"full hd 16x16", 1920, 1080, 16, 16, 120, 68},
		{"exact", 32, 32, 16, 16, 2, 2},
		{"single pixel", 1, 1, 16, 16, 1, 1},
		{"vertical blur", 1920, 1080, 128, 1, 15, 1080},
		{"horizontal blur", 1920, 1080, 1, 128, 1920, 9},
		{"one past", 17, 33, 16, 16, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotX, gotY := ComputeWorkGroupCount(tt.w, tt.h, tt.gw, tt.gh)
			if gotX != tt.wantX || gotY != tt.wantY {
				t.Errorf("ComputeWorkGroupCount(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.gw, tt.gh, gotX, gotY, tt.wantX, tt.wantY)
			}
		})
	}
}

// Every pixel is covered and dropping one group would leave pixels uncovered.
func TestComputeWorkGroupCountTight(t *testing.T) {
	for w := uint32(1); w <= 70; w++ {
		for _, g := range []uint32{1, 7, 16, 128} {
			nx, _ := ComputeWorkGroupCount(w, 1, g, 1)
			if nx*g < w {
				t.Fatalf("w=%d g=%d: %d groups cover %d < %d", w, g, nx, nx*g, w)
			}
			if (nx-1)*g >= w {
				t.Fatalf("w=%d g=%d: %d groups are not tight", w, g, nx)
			}
		}
	}
}
