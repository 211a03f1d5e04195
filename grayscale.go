package wgimage

// Grayscale converts an image to BT.601 luma, preserving alpha.
//
// Grayscale is NOT safe for concurrent use.
type Grayscale struct {
	*pointFilter
}

// NewGrayscale builds a grayscale filter for width x height images.
func NewGrayscale(ctx *Context, width, height uint32) (*Grayscale, error) {
	f, err := newPointFilter(ctx, grayscaleSchema, grayscaleShaderSource, width, height)
	if err != nil {
		return nil, err
	}
	Logger().Info("wgimage: grayscale filter ready", "width", width, "height", height)
	return &Grayscale{pointFilter: f}, nil
}
