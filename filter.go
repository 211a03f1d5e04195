package wgimage

// Filter is a compute pipeline with a fixed image extent and an owned
// output buffer.
type Filter interface {
	// Run records the filter over input and submits it without waiting.
	Run(input *ImageBuffer) error
	// Output returns the buffer Run writes to.
	Output() *ImageBuffer
	// Close releases the filter's GPU objects, including Output.
	Close()
}

var (
	_ Filter = (*Grayscale)(nil)
	_ Filter = (*Threshold)(nil)
	_ Filter = (*GaussianBlur)(nil)
)
