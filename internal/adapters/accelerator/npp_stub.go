//go:build !npp || !cgo

package accelerator

import (
	"context"
	"fmt"
	"gpuresize/internal/core/domain"
)

// NPPAccelerator stub for builds without the npp tag or without cgo.
type NPPAccelerator struct{}

func NewNPPAccelerator(_ Options) (*NPPAccelerator, error) {
	return nil, fmt.Errorf("%w: NPP requires cgo and the CUDA toolkit (build with -tags npp)",
		domain.ErrBackendUnavailable)
}

func (a *NPPAccelerator) Info() domain.DeviceInfo { return domain.DeviceInfo{Backend: BackendNPP} }
func (a *NPPAccelerator) MallocImage(domain.Size) (domain.DeviceImage, error) {
	return domain.DeviceImage{}, domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) Malloc(int) (domain.DevicePtr, error) { return 0, domain.ErrBackendUnavailable }
func (a *NPPAccelerator) Free(domain.DevicePtr) error          { return domain.ErrBackendUnavailable }
func (a *NPPAccelerator) Upload(context.Context, domain.DeviceImage, *domain.HostImage) error {
	return domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) Download(context.Context, *domain.HostImage, domain.DeviceImage) error {
	return domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) ResizeBufferSize(domain.Size, domain.Interpolation) (int, error) {
	return 0, domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) Resize(context.Context, domain.Stream, domain.DeviceImage, domain.ROI,
	domain.DeviceImage, domain.ROI, domain.Interpolation, domain.DevicePtr) error {
	return domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) Synchronize(context.Context, domain.Stream) error {
	return domain.ErrBackendUnavailable
}
func (a *NPPAccelerator) Close() error { return nil }
