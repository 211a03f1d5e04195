package wgimage

import "fmt"

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// CopyBytesPerRowAlignment is the row pitch alignment WebGPU (and DX12)
// requires for texture-to-buffer copies.
const CopyBytesPerRowAlignment = 256

// UnpaddedBytesPerRow returns the tightly packed row size for width pixels.
func UnpaddedBytesPerRow(width uint32) uint32 {
	return width * BytesPerPixel
}

// PaddedBytesPerRow returns the row size for width pixels rounded up to
// CopyBytesPerRowAlignment.
func PaddedBytesPerRow(width uint32) uint32 {
	unpadded := UnpaddedBytesPerRow(width)
	return (unpadded + CopyBytesPerRowAlignment - 1) &^ (CopyBytesPerRowAlignment - 1)
}

// StripRowPadding removes per-row padding from data copied out of a
// texture. data holds height rows of PaddedBytesPerRow(width) bytes; the
// result holds height rows of width*4 bytes in the same top-to-bottom order.
func StripRowPadding(data []byte, width, height uint32) ([]byte, error) {
	padded := int(PaddedBytesPerRow(width))
	unpadded := int(UnpaddedBytesPerRow(width))
	rows := int(height)

	if len(data) < padded*rows {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), padded*rows)
	}

	// No padding, fast path.
	if padded == unpadded {
		tight := make([]byte, unpadded*rows)
		copy(tight, data)
		return tight, nil
	}

	tight := make([]byte, unpadded*rows)
	for row := 0; row < rows; row++ {
		srcOff := row * padded
		dstOff := row * unpadded
		copy(tight[dstOff:dstOff+unpadded], data[srcOff:srcOff+unpadded])
	}
	return tight, nil
}
