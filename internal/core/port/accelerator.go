package port

import (
	"context"
	"gpuresize/internal/core/domain"
)

// Accelerator is the device a pipeline offloads its transform to. One instance is created per process
// and shared by every pipeline invocation.
type Accelerator interface {
	// Info describes the device for the startup banner.
	Info() domain.DeviceInfo
	// MallocImage allocates a pitched 8-bit single-channel image of the given size in device memory.
	MallocImage(size domain.Size) (domain.DeviceImage, error)
	// Malloc allocates a linear block of device memory, e.g. a transform scratch buffer.
	Malloc(bytes int) (domain.DevicePtr, error)
	// Free releases an allocation made by MallocImage or Malloc. Pending work on the default stream is
	// waited for before the memory is returned.
	Free(ptr domain.DevicePtr) error
	// Upload copies a host image into a device image of the same size.
	Upload(ctx context.Context, dst domain.DeviceImage, src *domain.HostImage) error
	// Download synchronizes the default stream and copies a device image into a host image of the same size.
	Download(ctx context.Context, dst *domain.HostImage, src domain.DeviceImage) error
	// ResizeBufferSize returns the number of scratch bytes Resize needs to produce an image of size dst.
	ResizeBufferSize(dst domain.Size, interpolation domain.Interpolation) (int, error)
	// Resize resamples srcROI of src into dstROI of dst on the given stream. The call may return before
	// the work completes; errors found while executing are reported by the next synchronizing call.
	Resize(ctx context.Context, stream domain.Stream, src domain.DeviceImage, srcROI domain.ROI,
		dst domain.DeviceImage, dstROI domain.ROI, interpolation domain.Interpolation, scratch domain.DevicePtr) error
	// Synchronize blocks until all work issued on stream has completed.
	Synchronize(ctx context.Context, stream domain.Stream) error
	// Close tears down the device context.
	Close() error
}
