package wgimage

import "errors"

// Environment errors.
var (
	// ErrNoGPU is returned when no compatible backend or adapter is available.
	ErrNoGPU = errors.New("wgimage: no compatible GPU adapter")

	// ErrUnsupportedProvider is returned when a device provider does not
	// expose HAL device and queue handles.
	ErrUnsupportedProvider = errors.New("wgimage: device provider does not expose HAL types")
)

// Resource mismatch errors.
var (
	// ErrLayoutMismatch is returned when a kernel's declared bindings do not
	// match the binding schema the host side was built against.
	ErrLayoutMismatch = errors.New("wgimage: binding layout mismatch")

	// ErrShaderCompile is returned when a WGSL kernel fails to compile.
	ErrShaderCompile = errors.New("wgimage: shader compilation failed")

	// ErrSizeMismatch is returned when downloaded data does not match
	// width*height*4 bytes.
	ErrSizeMismatch = errors.New("wgimage: pixel data size mismatch")

	// ErrExtentMismatch is returned when an input buffer's extent differs
	// from the extent a filter was built for.
	ErrExtentMismatch = errors.New("wgimage: image extent mismatch")

	// ErrInvalidDimensions is returned when width or height is zero or
	// exceeds the device's 2D texture limit.
	ErrInvalidDimensions = errors.New("wgimage: invalid dimensions")

	// ErrNotReadable is returned by ToHostImage on a readonly buffer.
	ErrNotReadable = errors.New("wgimage: buffer is not readable")

	// ErrInvalidThreshold is returned when a threshold cutoff exceeds 255.
	ErrInvalidThreshold = errors.New("wgimage: threshold cutoff must be in [0, 255]")

	// ErrInvalidSigma is returned for a negative or NaN blur sigma.
	ErrInvalidSigma = errors.New("wgimage: sigma must be a non-negative number")

	// ErrAliasedInput is returned when a filter's own output is passed as
	// its input.
	ErrAliasedInput = errors.New("wgimage: input aliases filter output")

	// ErrStageOrder is returned when blur stages are recorded out of order.
	ErrStageOrder = errors.New("wgimage: blur stage out of order")
)

// Device errors.
var (
	// ErrDeviceLost is returned when submission or completion waiting fails.
	// The in-flight operation is not retried.
	ErrDeviceLost = errors.New("wgimage: GPU device lost")

	// ErrReadbackTimeout is returned when a configured readback timeout
	// elapses before the device signals completion.
	ErrReadbackTimeout = errors.New("wgimage: readback timed out")

	// ErrClosed is returned when a closed context, buffer or filter is used.
	ErrClosed = errors.New("wgimage: use of closed resource")
)
