package service

import (
	"gpuresize/internal/core/domain"
	"gpuresize/internal/core/port"

	"github.com/rs/zerolog"
)

// deviceScope owns the device allocations of one pipeline invocation. Close releases whatever is still
// held in reverse acquisition order, so every return path frees its memory.
type deviceScope struct {
	device port.Accelerator
	held   []domain.DevicePtr
	log    zerolog.Logger
}

func newDeviceScope(device port.Accelerator, l zerolog.Logger) *deviceScope {
	return &deviceScope{device: device, log: l}
}

func (s *deviceScope) mallocImage(size domain.Size) (domain.DeviceImage, error) {
	img, err := s.device.MallocImage(size)
	if err != nil {
		return domain.DeviceImage{}, err
	}

	s.held = append(s.held, img.Ptr)
	return img, nil
}

func (s *deviceScope) malloc(bytes int) (domain.DevicePtr, error) {
	ptr, err := s.device.Malloc(bytes)
	if err != nil {
		return 0, err
	}

	s.held = append(s.held, ptr)
	return ptr, nil
}

// release frees ptr ahead of scope exit.
func (s *deviceScope) release(ptr domain.DevicePtr) error {
	for i := len(s.held) - 1; i >= 0; i-- {
		if s.held[i] == ptr {
			s.held = append(s.held[:i], s.held[i+1:]...)
			return s.device.Free(ptr)
		}
	}

	return nil
}

func (s *deviceScope) Close() {
	for i := len(s.held) - 1; i >= 0; i-- {
		if err := s.device.Free(s.held[i]); err != nil {
			s.log.Warn().Err(err).Uint64("ptr", uint64(s.held[i])).Msg("could not release device memory")
		}
	}
	s.held = nil
}
