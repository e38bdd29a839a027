//go:build npp && cgo

package accelerator

/*
#cgo CFLAGS: -I/usr/local/cuda/include -I/opt/cuda/include
#cgo LDFLAGS: -L/usr/local/cuda/lib64 -L/opt/cuda/lib64 -lcudart -lnppc -lnppig -lnppisu

#include <string.h>
#include <cuda_runtime.h>
#include <npp.h>

static const char* cudaErrorText(cudaError_t err) {
    return cudaGetErrorString(err);
}

static int resize8u(const Npp8u* src, int srcStep, int srcW, int srcH,
                    int sx, int sy, int sw, int sh,
                    Npp8u* dst, int dstStep, int dstW, int dstH,
                    int dx, int dy, int dw, int dh,
                    int interpolation, cudaStream_t stream) {
    NppStreamContext ctx;
    memset(&ctx, 0, sizeof(ctx));
    NppStatus st = nppGetStreamContext(&ctx);
    if (st != NPP_SUCCESS) {
        return (int)st;
    }
    ctx.hStream = stream;

    NppiSize srcSize = {srcW, srcH};
    NppiRect srcRoi = {sx, sy, sw, sh};
    NppiSize dstSize = {dstW, dstH};
    NppiRect dstRoi = {dx, dy, dw, dh};

    return (int)nppiResize_8u_C1R_Ctx(src, srcStep, srcSize, srcRoi,
                                      dst, dstStep, dstSize, dstRoi,
                                      interpolation, ctx);
}
*/
import "C"

import (
	"context"
	"fmt"
	"gpuresize/internal/core/domain"
	"sync"
	"unsafe"

	"github.com/rs/zerolog/log"
)

type nppAllocation struct {
	ptr   unsafe.Pointer
	image bool
	bytes int64
}

// NPPAccelerator runs the resize with NVIDIA Performance Primitives on the first CUDA device.
type NPPAccelerator struct {
	info domain.DeviceInfo

	mu      sync.Mutex
	live    map[domain.DevicePtr]nppAllocation
	streams map[domain.Stream]C.cudaStream_t
}

func cudaError(op string, err C.cudaError_t) error {
	return fmt.Errorf("%s: %s", op, C.GoString(C.cudaErrorText(err)))
}

func NewNPPAccelerator(opts Options) (*NPPAccelerator, error) {
	var count C.int
	if err := C.cudaGetDeviceCount(&count); err != C.cudaSuccess {
		return nil, cudaError("cudaGetDeviceCount", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("no CUDA devices found")
	}
	if err := C.cudaSetDevice(0); err != C.cudaSuccess {
		return nil, cudaError("cudaSetDevice", err)
	}

	var props C.struct_cudaDeviceProp
	if err := C.cudaGetDeviceProperties(&props, 0); err != C.cudaSuccess {
		return nil, cudaError("cudaGetDeviceProperties", err)
	}

	var driver, runtimeVersion C.int
	C.cudaDriverGetVersion(&driver)
	C.cudaRuntimeGetVersion(&runtimeVersion)
	lib := C.nppGetLibVersion()

	a := &NPPAccelerator{
		info: domain.DeviceInfo{
			Name:    C.GoString(&props.name[0]),
			Backend: BackendNPP,
			Driver: fmt.Sprintf("CUDA driver %d.%d, runtime %d.%d, NPP %d.%d.%d",
				driver/1000, (driver%100)/10, runtimeVersion/1000, (runtimeVersion%100)/10,
				lib.major, lib.minor, lib.build),
			MemoryTotal:    int64(props.totalGlobalMem),
			PitchAlignment: int(props.texturePitchAlignment),
		},
		live:    make(map[domain.DevicePtr]nppAllocation),
		streams: map[domain.Stream]C.cudaStream_t{domain.DefaultStream: nil},
	}

	log.Info().Str("device", a.info.Name).Str("driver", a.info.Driver).Msg("CUDA device initialized")
	return a, nil
}

func (a *NPPAccelerator) Info() domain.DeviceInfo {
	return a.info
}

func (a *NPPAccelerator) track(p unsafe.Pointer, image bool, bytes int64) domain.DevicePtr {
	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := domain.DevicePtr(uintptr(p))
	a.live[ptr] = nppAllocation{ptr: p, image: image, bytes: bytes}
	return ptr
}

func (a *NPPAccelerator) lookup(ptr domain.DevicePtr) (nppAllocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, ok := a.live[ptr]
	if !ok {
		return nppAllocation{}, fmt.Errorf("%w: %#x", domain.ErrInvalidPointer, uint64(ptr))
	}
	return alloc, nil
}

func (a *NPPAccelerator) MallocImage(size domain.Size) (domain.DeviceImage, error) {
	if size.Empty() {
		return domain.DeviceImage{}, fmt.Errorf("invalid image size %s", size)
	}

	var step C.int
	p := C.nppiMalloc_8u_C1(C.int(size.Width), C.int(size.Height), &step)
	if p == nil {
		return domain.DeviceImage{}, fmt.Errorf("%w: nppiMalloc_8u_C1 %s", domain.ErrOutOfMemory, size)
	}

	ptr := a.track(unsafe.Pointer(p), true, int64(step)*int64(size.Height))
	return domain.DeviceImage{Ptr: ptr, Size: size, Pitch: int(step)}, nil
}

func (a *NPPAccelerator) Malloc(bytes int) (domain.DevicePtr, error) {
	var p unsafe.Pointer
	if err := C.cudaMalloc(&p, C.size_t(bytes)); err != C.cudaSuccess {
		return 0, fmt.Errorf("%w: %w", domain.ErrOutOfMemory, cudaError("cudaMalloc", err))
	}
	return a.track(p, false, int64(bytes)), nil
}

func (a *NPPAccelerator) Free(ptr domain.DevicePtr) error {
	alloc, err := a.lookup(ptr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	delete(a.live, ptr)
	a.mu.Unlock()

	if alloc.image {
		C.nppiFree(alloc.ptr)
		return nil
	}
	if err := C.cudaFree(alloc.ptr); err != C.cudaSuccess {
		return cudaError("cudaFree", err)
	}
	return nil
}

func (a *NPPAccelerator) Upload(ctx context.Context, dst domain.DeviceImage, src *domain.HostImage) error {
	if src.Size() != dst.Size {
		return fmt.Errorf("upload size mismatch: host %s, device %s", src.Size(), dst.Size)
	}
	alloc, err := a.lookup(dst.Ptr)
	if err != nil {
		return err
	}

	e := C.cudaMemcpy2D(alloc.ptr, C.size_t(dst.Pitch), unsafe.Pointer(&src.Pix[0]), C.size_t(src.Pitch),
		C.size_t(src.Width), C.size_t(src.Height), C.cudaMemcpyHostToDevice)
	if e != C.cudaSuccess {
		return cudaError("cudaMemcpy2D", e)
	}
	return nil
}

func (a *NPPAccelerator) Download(ctx context.Context, dst *domain.HostImage, src domain.DeviceImage) error {
	if dst.Size() != src.Size {
		return fmt.Errorf("download size mismatch: host %s, device %s", dst.Size(), src.Size)
	}
	if err := a.Synchronize(ctx, domain.DefaultStream); err != nil {
		return err
	}
	alloc, err := a.lookup(src.Ptr)
	if err != nil {
		return err
	}

	e := C.cudaMemcpy2D(unsafe.Pointer(&dst.Pix[0]), C.size_t(dst.Pitch), alloc.ptr, C.size_t(src.Pitch),
		C.size_t(dst.Width), C.size_t(dst.Height), C.cudaMemcpyDeviceToHost)
	if e != C.cudaSuccess {
		return cudaError("cudaMemcpy2D", e)
	}
	return nil
}

func (a *NPPAccelerator) ResizeBufferSize(dst domain.Size, interpolation domain.Interpolation) (int, error) {
	return resizeBufferSize(dst, interpolation)
}

func nppInterpolation(i domain.Interpolation) (C.int, error) {
	switch i {
	case domain.InterpolationNearest:
		return C.NPPI_INTER_NN, nil
	case domain.InterpolationLinear:
		return C.NPPI_INTER_LINEAR, nil
	case domain.InterpolationCubic:
		return C.NPPI_INTER_CUBIC, nil
	case domain.InterpolationLanczos:
		return C.NPPI_INTER_LANCZOS, nil
	default:
		return 0, fmt.Errorf("%w: %d", domain.ErrUnknownInterpolation, int(i))
	}
}

func (a *NPPAccelerator) Resize(ctx context.Context, s domain.Stream, src domain.DeviceImage, srcROI domain.ROI,
	dst domain.DeviceImage, dstROI domain.ROI, interpolation domain.Interpolation, scratch domain.DevicePtr) error {
	if !srcROI.Within(src.Size) || !dstROI.Within(dst.Size) {
		return domain.ErrInvalidROI
	}
	mode, err := nppInterpolation(interpolation)
	if err != nil {
		return err
	}

	need, err := resizeBufferSize(domain.Size{Width: dstROI.Width, Height: dstROI.Height}, interpolation)
	if err != nil {
		return err
	}
	buf, err := a.lookup(scratch)
	if err != nil {
		return fmt.Errorf("scratch: %w", err)
	}
	if buf.bytes < int64(need) {
		return fmt.Errorf("%w: have %d bytes, need %d", domain.ErrScratchTooSmall, buf.bytes, need)
	}

	in, err := a.lookup(src.Ptr)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	out, err := a.lookup(dst.Ptr)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	h, err := a.stream(s)
	if err != nil {
		return err
	}

	st := C.resize8u((*C.Npp8u)(in.ptr), C.int(src.Pitch), C.int(src.Size.Width), C.int(src.Size.Height),
		C.int(srcROI.X), C.int(srcROI.Y), C.int(srcROI.Width), C.int(srcROI.Height),
		(*C.Npp8u)(out.ptr), C.int(dst.Pitch), C.int(dst.Size.Width), C.int(dst.Size.Height),
		C.int(dstROI.X), C.int(dstROI.Y), C.int(dstROI.Width), C.int(dstROI.Height),
		mode, h)
	if st < 0 {
		return fmt.Errorf("%w: nppiResize_8u_C1R_Ctx status %d", domain.ErrTransformFailed, int(st))
	}
	if st > 0 {
		log.Warn().Int("status", int(st)).Msg("nppiResize_8u_C1R_Ctx returned a warning")
	}
	return nil
}

func (a *NPPAccelerator) stream(s domain.Stream) (C.cudaStream_t, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if h, ok := a.streams[s]; ok {
		return h, nil
	}

	var h C.cudaStream_t
	if err := C.cudaStreamCreate(&h); err != C.cudaSuccess {
		return nil, cudaError("cudaStreamCreate", err)
	}
	a.streams[s] = h
	return h, nil
}

func (a *NPPAccelerator) Synchronize(_ context.Context, s domain.Stream) error {
	h, err := a.stream(s)
	if err != nil {
		return err
	}
	if e := C.cudaStreamSynchronize(h); e != C.cudaSuccess {
		return fmt.Errorf("%w: %w", domain.ErrTransformFailed, cudaError("cudaStreamSynchronize", e))
	}
	return nil
}

func (a *NPPAccelerator) Close() error {
	a.mu.Lock()
	leaked := len(a.live)
	a.mu.Unlock()

	if leaked > 0 {
		log.Warn().Int("allocations", leaked).Msg("device closed with live allocations")
	}

	if err := C.cudaDeviceReset(); err != C.cudaSuccess {
		return cudaError("cudaDeviceReset", err)
	}
	return nil
}
