package domain

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// WorkItem is one unit of batch work: a source path and the scale factor shared by the whole run.
type WorkItem struct {
	Path  string
	Scale float64
}

type Size struct {
	Width  int
	Height int
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ScaleSize returns the destination size for src, truncating scale*dimension toward zero per axis.
// Axes saturate at math.MaxInt32.
func ScaleSize(src Size, scale float64) Size {
	return Size{
		Width:  scaleAxis(src.Width, scale),
		Height: scaleAxis(src.Height, scale),
	}
}

func scaleAxis(n int, scale float64) int {
	v := math.Trunc(scale * float64(n))
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// ROI is the rectangle of a buffer an operation reads from or writes to.
type ROI struct {
	X      int
	Y      int
	Width  int
	Height int
}

// FullROI covers the whole buffer.
func FullROI(s Size) ROI {
	return ROI{Width: s.Width, Height: s.Height}
}

// Within reports whether the ROI lies inside a buffer of the given size.
func (r ROI) Within(s Size) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= s.Width && r.Y+r.Height <= s.Height
}

func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// HostImage is a host-resident single-channel 8-bit image. Rows are Pitch bytes apart.
type HostImage struct {
	Width  int
	Height int
	Pitch  int
	Pix    []byte
}

// NewHostImage allocates a zeroed host image. A pitch below the width is raised to the width.
func NewHostImage(size Size, pitch int) *HostImage {
	if pitch < size.Width {
		pitch = size.Width
	}

	return &HostImage{
		Width:  size.Width,
		Height: size.Height,
		Pitch:  pitch,
		Pix:    make([]byte, pitch*size.Height),
	}
}

func (h *HostImage) Size() Size {
	return Size{Width: h.Width, Height: h.Height}
}

// Gray returns an image.Gray sharing the pixel memory of h.
func (h *HostImage) Gray() *image.Gray {
	return &image.Gray{
		Pix:    h.Pix,
		Stride: h.Pitch,
		Rect:   image.Rect(0, 0, h.Width, h.Height),
	}
}

// DevicePtr is an opaque handle to accelerator memory. Zero is never a valid allocation.
type DevicePtr uint64

// DeviceImage is a pitched 8-bit single-channel image living in accelerator memory.
type DeviceImage struct {
	Ptr   DevicePtr
	Size  Size
	Pitch int
}

// Stream identifies an ordered queue of device operations.
type Stream int

const DefaultStream Stream = 0

type Interpolation int

const (
	InterpolationNearest Interpolation = iota
	InterpolationLinear
	InterpolationCubic
	InterpolationLanczos
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationLinear:
		return "linear"
	case InterpolationCubic:
		return "cubic"
	case InterpolationLanczos:
		return "lanczos"
	default:
		return "unknown"
	}
}

// Taps is the number of source samples the kernel reads per output sample and axis.
func (i Interpolation) Taps() int {
	switch i {
	case InterpolationNearest:
		return 1
	case InterpolationLinear:
		return 2
	case InterpolationCubic:
		return 4
	default:
		return 6
	}
}

func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nn":
		return InterpolationNearest, nil
	case "linear", "bilinear":
		return InterpolationLinear, nil
	case "cubic", "bicubic":
		return InterpolationCubic, nil
	case "lanczos", "lanczos3", "":
		return InterpolationLanczos, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInterpolation, s)
	}
}

// DeviceInfo describes the accelerator for the startup banner.
type DeviceInfo struct {
	Name           string
	Backend        string
	Driver         string
	MemoryTotal    int64
	PitchAlignment int
}
