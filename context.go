package wgimage

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// AdapterInfo describes the GPU selected by NewContext.
type AdapterInfo struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Backend is the graphics API in use.
	Backend gputypes.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (i AdapterInfo) String() string {
	if i.Name == "" {
		return "external device"
	}
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.DeviceType, i.Backend)
}

// Context holds the logical GPU device and its command queue.
//
// Every ImageBuffer and filter borrows the Context it was created with and
// must be closed before the Context is. A Context is read-only after
// construction; issuing GPU work from several goroutines at once is not
// supported.
type Context struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	info   AdapterInfo
	limits gputypes.Limits
	opts   options

	// owned is false when the device belongs to a host application.
	owned  bool
	closed bool
}

// NewContext selects an adapter on the configured backend, opens a device
// and takes its queue.
//
// There is no retry: a missing backend or adapter is an environment error
// and the returned error wraps ErrNoGPU.
func NewContext(ctx context.Context, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %s not available", ErrNoGPU, o.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}

	if err := ctx.Err(); err != nil {
		instance.Destroy()
		return nil, err
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters, o.powerPreference)
	if selected == nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}

	if err := ctx.Err(); err != nil {
		instance.Destroy()
		return nil, err
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoGPU, err)
	}

	c := &Context{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		info: AdapterInfo{
			Name:       selected.Info.Name,
			Vendor:     selected.Info.Vendor,
			DeviceType: selected.Info.DeviceType,
			Backend:    selected.Info.Backend,
			Driver:     selected.Info.Driver,
		},
		limits: limits,
		opts:   o,
		owned:  true,
	}
	Logger().Info("wgimage: device opened", "adapter", c.info.String(), "driver", c.info.Driver)
	return c, nil
}

// NewContextFromHAL wraps a device and queue owned by the caller.
// Close does not destroy them.
func NewContextFromHAL(device hal.Device, queue hal.Queue, opts ...Option) (*Context, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrUnsupportedProvider)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Context{
		device: device,
		queue:  queue,
		limits: gputypes.DefaultLimits(),
		opts:   o,
	}, nil
}

// NewContextFromProvider shares the GPU device of a host application.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewContextFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrUnsupportedProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrUnsupportedProvider)
	}
	c, err := NewContextFromHAL(device, queue, opts...)
	if err != nil {
		return nil, err
	}
	Logger().Info("wgimage: using shared GPU device")
	return c, nil
}

// selectAdapter picks an adapter by power preference. High performance
// prefers discrete GPUs, low power prefers integrated ones; anything else
// falls back to the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter, pref gputypes.PowerPreference) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	order := []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	if pref == gputypes.PowerPreferenceLowPower {
		order = []gputypes.DeviceType{gputypes.DeviceTypeIntegratedGPU, gputypes.DeviceTypeDiscreteGPU}
	}
	for _, want := range order {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

// Info returns information about the selected adapter.
// It is empty for contexts wrapping an external device.
func (c *Context) Info() AdapterInfo {
	return c.info
}

// Device returns the HAL device.
func (c *Context) Device() hal.Device {
	return c.device
}

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue {
	return c.queue
}

// MaxTextureDimension returns the largest supported 2D texture side.
func (c *Context) MaxTextureDimension() uint32 {
	return c.limits.MaxTextureDimension2D
}

// Close releases the device and instance if the Context created them.
// Buffers and filters created from the Context must be closed first.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.owned {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
		Logger().Info("wgimage: device closed")
	}
	c.device = nil
	c.queue = nil
	c.instance = nil
}

func (c *Context) checkOpen() error {
	if c == nil || c.closed {
		return ErrClosed
	}
	return nil
}

// label prefixes a GPU object name with the configured label.
func (c *Context) label(name string) string {
	return c.opts.label + "_" + name
}

// readbackTimeout returns the bound on download waits. Zero means none.
func (c *Context) readbackTimeout() time.Duration {
	return c.opts.readbackTimeout
}

// Completion polling backs off from pollInterval to maxPollInterval.
const (
	pollInterval    = 50 * time.Microsecond
	maxPollInterval = 2 * time.Millisecond
)

// submit hands cmdBuf to the queue and returns its submission index.
func (c *Context) submit(cmdBuf hal.CommandBuffer) (uint64, error) {
	index, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return 0, fmt.Errorf("%w: submit: %w", ErrDeviceLost, err)
	}
	return index, nil
}

// wait blocks until the queue has completed submission index. Without a
// timeout it idles the device; otherwise it polls until the deadline.
func (c *Context) wait(index uint64, timeout time.Duration) error {
	if c.queue.PollCompleted() >= index {
		return nil
	}
	if timeout <= 0 {
		if err := c.device.WaitIdle(); err != nil {
			return fmt.Errorf("%w: wait for GPU: %w", ErrDeviceLost, err)
		}
		return nil
	}
	deadline := time.Now().Add(timeout)
	for delay := pollInterval; c.queue.PollCompleted() < index; delay = min(2*delay, maxPollInterval) {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %v", ErrReadbackTimeout, timeout)
		}
		time.Sleep(delay)
	}
	return nil
}
