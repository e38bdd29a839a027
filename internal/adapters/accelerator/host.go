package accelerator

import (
	"context"
	"fmt"
	"gpuresize/internal/core/domain"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPitchAlignment = 64
	// DefaultMemoryLimit is the emulated device memory when Options.MemoryLimit is zero.
	DefaultMemoryLimit int64 = 1 << 30
)

// HostAccelerator emulates a device in host memory. Allocations are opaque pointers into a tracked
// arena and Resize runs asynchronously on ordered streams, so callers exercise the same
// allocate/launch/synchronize/free lifecycle they would on a GPU.
type HostAccelerator struct {
	memory    *arena
	resampler resampler
	alignment int

	mu      sync.Mutex
	streams map[domain.Stream]*stream
}

func NewHostAccelerator(opts Options) (*HostAccelerator, error) {
	r, err := newResampler(opts.Backend)
	if err != nil {
		return nil, err
	}

	alignment := opts.PitchAlignment
	if alignment <= 0 {
		alignment = DefaultPitchAlignment
	}

	limit := opts.MemoryLimit
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	a := &HostAccelerator{
		memory:    newArena(limit),
		resampler: r,
		alignment: alignment,
		streams:   make(map[domain.Stream]*stream),
	}

	log.Debug().
		Str("backend", r.name()).
		Int("pitchAlignment", alignment).
		Int64("memoryLimit", limit).
		Msg("host accelerator initialized")

	return a, nil
}

func (a *HostAccelerator) Info() domain.DeviceInfo {
	return domain.DeviceInfo{
		Name:           fmt.Sprintf("host emulated device (%s/%s, %d CPUs)", runtime.GOOS, runtime.GOARCH, runtime.NumCPU()),
		Backend:        a.resampler.name(),
		Driver:         runtime.Version(),
		MemoryTotal:    a.memory.limit,
		PitchAlignment: a.alignment,
	}
}

// Stats reports the current memory bookkeeping.
func (a *HostAccelerator) Stats() MemoryStats {
	return a.memory.stats()
}

func (a *HostAccelerator) pitch(width int) int {
	return (width + a.alignment - 1) / a.alignment * a.alignment
}

func (a *HostAccelerator) MallocImage(size domain.Size) (domain.DeviceImage, error) {
	if size.Empty() {
		return domain.DeviceImage{}, fmt.Errorf("invalid image size %s", size)
	}

	pitch := a.pitch(size.Width)
	if pitch <= 0 || pitch > math.MaxInt/size.Height {
		return domain.DeviceImage{}, fmt.Errorf("%w: %s image does not fit the address space", domain.ErrOutOfMemory, size)
	}
	ptr, err := a.memory.alloc(pitch * size.Height)
	if err != nil {
		return domain.DeviceImage{}, err
	}

	return domain.DeviceImage{Ptr: ptr, Size: size, Pitch: pitch}, nil
}

func (a *HostAccelerator) Malloc(bytes int) (domain.DevicePtr, error) {
	return a.memory.alloc(bytes)
}

// Free waits for all streams before returning memory, since a queued kernel may still use it.
func (a *HostAccelerator) Free(ptr domain.DevicePtr) error {
	for _, s := range a.allStreams() {
		_ = s.wait(context.Background())
	}
	return a.memory.free(ptr)
}

func (a *HostAccelerator) Upload(ctx context.Context, dst domain.DeviceImage, src *domain.HostImage) error {
	if src.Size() != dst.Size {
		return fmt.Errorf("upload size mismatch: host %s, device %s", src.Size(), dst.Size)
	}
	if err := a.Synchronize(ctx, domain.DefaultStream); err != nil {
		return err
	}

	view, err := a.view(dst)
	if err != nil {
		return err
	}

	copyRows(view.Pix, view.Stride, src.Pix, src.Pitch, src.Width, src.Height)
	return nil
}

func (a *HostAccelerator) Download(ctx context.Context, dst *domain.HostImage, src domain.DeviceImage) error {
	if dst.Size() != src.Size {
		return fmt.Errorf("download size mismatch: host %s, device %s", dst.Size(), src.Size)
	}
	if err := a.Synchronize(ctx, domain.DefaultStream); err != nil {
		return err
	}

	view, err := a.view(src)
	if err != nil {
		return err
	}

	copyRows(dst.Pix, dst.Pitch, view.Pix, view.Stride, dst.Width, dst.Height)
	return nil
}

func (a *HostAccelerator) ResizeBufferSize(dst domain.Size, interpolation domain.Interpolation) (int, error) {
	return resizeBufferSize(dst, interpolation)
}

func (a *HostAccelerator) Resize(ctx context.Context, s domain.Stream, src domain.DeviceImage, srcROI domain.ROI,
	dst domain.DeviceImage, dstROI domain.ROI, interpolation domain.Interpolation, scratch domain.DevicePtr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !srcROI.Within(src.Size) {
		return fmt.Errorf("%w: source roi %+v, image %s", domain.ErrInvalidROI, srcROI, src.Size)
	}
	if !dstROI.Within(dst.Size) {
		return fmt.Errorf("%w: destination roi %+v, image %s", domain.ErrInvalidROI, dstROI, dst.Size)
	}

	need, err := resizeBufferSize(domain.Size{Width: dstROI.Width, Height: dstROI.Height}, interpolation)
	if err != nil {
		return err
	}
	buf, err := a.memory.bytes(scratch)
	if err != nil {
		return fmt.Errorf("scratch: %w", err)
	}
	if len(buf) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", domain.ErrScratchTooSmall, len(buf), need)
	}

	srcView, err := a.view(src)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	dstView, err := a.view(dst)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	a.stream(s).enqueue(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", domain.ErrTransformFailed, r)
			}
		}()

		if err := a.resampler.resample(dstView, dstROI.Rect(), srcView, srcROI.Rect(), interpolation); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransformFailed, err)
		}
		return nil
	})

	return nil
}

func (a *HostAccelerator) Synchronize(ctx context.Context, s domain.Stream) error {
	return a.stream(s).synchronize(ctx)
}

// Close waits for outstanding work and drops any allocation that was never freed.
func (a *HostAccelerator) Close() error {
	for _, s := range a.allStreams() {
		_ = s.wait(context.Background())
	}

	if leaked := a.memory.reset(); leaked > 0 {
		log.Warn().Int("allocations", leaked).Msg("device closed with live allocations")
	}

	return nil
}

func (a *HostAccelerator) view(img domain.DeviceImage) (*image.Gray, error) {
	buf, err := a.memory.bytes(img.Ptr)
	if err != nil {
		return nil, err
	}
	if img.Pitch < img.Size.Width || len(buf) < img.Pitch*img.Size.Height {
		return nil, fmt.Errorf("%w: %d does not hold a %s image with pitch %d",
			domain.ErrInvalidPointer, img.Ptr, img.Size, img.Pitch)
	}

	return &image.Gray{
		Pix:    buf,
		Stride: img.Pitch,
		Rect:   image.Rect(0, 0, img.Size.Width, img.Size.Height),
	}, nil
}

func (a *HostAccelerator) stream(id domain.Stream) *stream {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.streams[id]
	if !ok {
		s = &stream{}
		a.streams[id] = s
	}
	return s
}

func (a *HostAccelerator) allStreams() []*stream {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*stream, 0, len(a.streams))
	for _, s := range a.streams {
		out = append(out, s)
	}
	return out
}

func copyRows(dst []byte, dstPitch int, src []byte, srcPitch int, width, height int) {
	for y := 0; y < height; y++ {
		copy(dst[y*dstPitch:y*dstPitch+width], src[y*srcPitch:y*srcPitch+width])
	}
}
