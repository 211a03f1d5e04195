package wgimage

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Default: Vulkan backend, high performance adapter, no readback timeout.
//	ctx, err := wgimage.NewContext(context.Background())
//
//	// Low power adapter and a bounded readback wait.
//	ctx, err := wgimage.NewContext(context.Background(),
//	    wgimage.WithPowerPreference(gputypes.PowerPreferenceLowPower),
//	    wgimage.WithReadbackTimeout(10*time.Second))
type Option func(*options)

// options holds the Context configuration.
type options struct {
	backend         gputypes.Backend
	powerPreference gputypes.PowerPreference
	readbackTimeout time.Duration
	label           string
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		backend:         gputypes.BackendVulkan,
		powerPreference: gputypes.PowerPreferenceHighPerformance,
		readbackTimeout: 0, // wait until the device signals completion
		label:           "wgimage",
	}
}

// WithBackend selects the HAL backend used by NewContext.
// The backend package must be linked in; Vulkan is linked by default.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPowerPreference selects which adapter class NewContext prefers.
func WithPowerPreference(p gputypes.PowerPreference) Option {
	return func(o *options) {
		o.powerPreference = p
	}
}

// WithReadbackTimeout bounds how long ToHostImage waits for the device.
// Zero or negative waits until the device signals completion or is lost.
func WithReadbackTimeout(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.readbackTimeout = d
	}
}

// WithLabel sets the debug label prefix for GPU objects.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
