// Command wgimage applies one GPU image filter to an image file.
//
// Usage:
//
//	wgimage -in photo.jpg -out gray.png -filter grayscale
//	wgimage -in photo.jpg -out bw.png -filter threshold -cutoff 128
//	wgimage -in photo.jpg -out soft.png -filter blur -sigma 4
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/wgimage"
	"github.com/gogpu/wgimage/internal/imageio"
	"github.com/gogpu/wgimage/internal/reference"
)

func main() {
	var (
		in       = flag.String("in", "", "input image (PNG, JPEG, BMP, TIFF, WebP)")
		out      = flag.String("out", "out.png", "output image (.png, .jpg)")
		filter   = flag.String("filter", "grayscale", "filter: grayscale, threshold or blur")
		cutoff   = flag.Uint("cutoff", 128, "threshold cutoff, 0..255")
		sigma    = flag.Float64("sigma", 3, "blur standard deviation in pixels")
		lowPower = flag.Bool("low-power", false, "prefer an integrated GPU")
		timeout  = flag.Duration("timeout", 30*time.Second, "readback timeout, 0 waits forever")
		cpu      = flag.Bool("cpu", false, "run on the CPU; also used when no GPU is found")
		verbose  = flag.Bool("v", false, "log GPU operations to stderr")
	)
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		wgimage.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	opts := []wgimage.Option{wgimage.WithReadbackTimeout(*timeout)}
	if *lowPower {
		opts = append(opts, wgimage.WithPowerPreference(gputypes.PowerPreferenceLowPower))
	}

	start := time.Now()
	c, s := uint32(*cutoff), float32(*sigma) //nolint:gosec // range checked by the filters
	var err error
	if !*cpu {
		err = run(*in, *out, *filter, c, s, opts)
		if errors.Is(err, wgimage.ErrNoGPU) {
			log.Printf("No GPU available, falling back to CPU: %v\n", err)
			*cpu = true
		}
	}
	if *cpu {
		err = runCPU(*in, *out, *filter, c, s)
	}
	if err != nil {
		log.Fatalf("Failed: %v", err)
	}
	log.Printf("Saved %s (%s) in %v\n", *out, *filter, time.Since(start).Round(time.Millisecond))
}

func run(inPath, outPath, name string, cutoff uint32, sigma float32, opts []wgimage.Option) error {
	gpu, err := wgimage.NewContext(context.Background(), opts...)
	if err != nil {
		return err
	}
	defer gpu.Close()

	img, format, err := load(inPath)
	if err != nil {
		return err
	}
	if limit := int(gpu.MaxTextureDimension()); limit > 0 {
		img = imageio.FitWithin(img, limit)
	}
	w, h := uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy()) //nolint:gosec // bounds are non-negative
	log.Printf("Loaded %s (%s, %dx%d) on %s\n", inPath, format, w, h, gpu.Info())

	input, err := wgimage.FromHostImageReadOnly(gpu, img)
	if err != nil {
		return err
	}
	defer input.Close()

	f, err := newFilter(gpu, name, w, h, cutoff, sigma)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Run(input); err != nil {
		return err
	}
	result, err := f.Output().ToHostImage()
	if err != nil {
		return err
	}
	return imageio.Save(outPath, result)
}

func newFilter(gpu *wgimage.Context, name string, w, h, cutoff uint32, sigma float32) (wgimage.Filter, error) {
	switch name {
	case "grayscale":
		return wgimage.NewGrayscale(gpu, w, h)
	case "threshold":
		return wgimage.NewThreshold(gpu, w, h, cutoff)
	case "blur":
		return wgimage.NewGaussianBlur(gpu, w, h, sigma)
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}

// maxSide bounds the input on both paths, so the output size does not
// depend on whether a GPU was found. NewContext opens devices with the
// default limits.
var maxSide = int(gputypes.DefaultLimits().MaxTextureDimension2D)

// load decodes path and scales it down to fit maxSide.
func load(path string) (*image.RGBA, string, error) {
	img, format, err := imageio.Load(path)
	if err != nil {
		return nil, "", err
	}
	return imageio.FitWithin(img, maxSide), format, nil
}

func runCPU(inPath, outPath, name string, cutoff uint32, sigma float32) error {
	img, _, err := load(inPath)
	if err != nil {
		return err
	}

	var result *image.RGBA
	switch name {
	case "grayscale":
		result = reference.Grayscale(img)
	case "threshold":
		if cutoff > wgimage.MaxThreshold {
			return fmt.Errorf("%w: got %d", wgimage.ErrInvalidThreshold, cutoff)
		}
		result = reference.Threshold(img, cutoff)
	case "blur":
		k, err := wgimage.NewKernel(sigma)
		if err != nil {
			return err
		}
		result = reference.Blur(img, k.Weights, k.Sum)
	default:
		return fmt.Errorf("unknown filter %q", name)
	}
	return imageio.Save(outPath, result)
}
