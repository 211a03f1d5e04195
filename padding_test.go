package wgimage

import (
	"bytes"
	"errors"
	"testing"
)

func TestPaddedBytesPerRow(t *testing.T) {
	tests := []struct {
		width uint32
		want  uint32
	}{
		{1, 256},
		{63, 256},
		{64, 256},
		{65, 512},
		{255, 1024},
		{256, 1024},
		{257, 1280},
	}
	for _, tt := range tests {
		if got := PaddedBytesPerRow(tt.width); got != tt.want {
			t.Errorf("PaddedBytesPerRow(%d) = %d, want %d", tt.width, got, tt.want)
		}
		if got := PaddedBytesPerRow(tt.width); got%CopyBytesPerRowAlignment != 0 || got < UnpaddedBytesPerRow(tt.width) {
			t.Errorf("PaddedBytesPerRow(%d) = %d is not an aligned cover", tt.width, got)
		}
	}
}

func TestStripRowPadding(t *testing.T) {
	const width, height = 3, 4
	padded := int(PaddedBytesPerRow(width))
	data := make([]byte, padded*height)
	for row := 0; row < height; row++ {
		for i := 0; i < width*BytesPerPixel; i++ {
			data[row*padded+i] = byte(row*16 + i)
		}
		// Padding bytes must not leak into the result.
		for i := width * BytesPerPixel; i < padded; i++ {
			data[row*padded+i] = 0xEE
		}
	}

	got, err := StripRowPadding(data, width, height)
	if err != nil {
		t.Fatalf("StripRowPadding() error = %v", err)
	}
	if len(got) != width*height*BytesPerPixel {
		t.Fatalf("len = %d, want %d", len(got), width*height*BytesPerPixel)
	}
	for row := 0; row < height; row++ {
		line := got[row*width*BytesPerPixel : (row+1)*width*BytesPerPixel]
		if line[0] != byte(row*16) {
			t.Errorf("row %d starts with %d, want %d", row, line[0], row*16)
		}
		if bytes.IndexByte(line, 0xEE) >= 0 {
			t.Errorf("row %d contains padding bytes", row)
		}
	}
}

func TestStripRowPaddingNoPadding(t *testing.T) {
	const width, height = 64, 2
	data := make([]byte, width*height*BytesPerPixel)
	for i := range data {
		data[i] = byte(i)
	}
	got, err := StripRowPadding(data, width, height)
	if err != nil {
		t.Fatalf("StripRowPadding() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("StripRowPadding() changed unpadded data")
	}
	got[0] = 0xFF
	if data[0] == 0xFF {
		t.Error("StripRowPadding() aliased its input")
	}
}

func TestStripRowPaddingShortInput(t *testing.T) {
	data := make([]byte, 256*2-1)
	if _, err := StripRowPadding(data, 1, 2); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("StripRowPadding(short) error = %v, want ErrSizeMismatch", err)
	}
}

func TestImageFromRaw(t *testing.T) {
	img, err := imageFromRaw(2, 3, make([]byte, 24))
	if err != nil {
		t.Fatalf("imageFromRaw() error = %v", err)
	}
	if img.Stride != 8 || img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 {
		t.Errorf("imageFromRaw() = stride %d bounds %v", img.Stride, img.Bounds())
	}
	if _, err := imageFromRaw(2, 3, make([]byte, 23)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("imageFromRaw(23 bytes) error = %v, want ErrSizeMismatch", err)
	}
}
