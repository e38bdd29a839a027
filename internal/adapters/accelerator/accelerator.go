package accelerator

import (
	"gpuresize/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Options selects and tunes the device.
type Options struct {
	// Backend is one of BackendNFNT, BackendXDraw or BackendNPP.
	Backend string
	// PitchAlignment is the row alignment of device images in bytes.
	PitchAlignment int
	// MemoryLimit caps emulated device memory in bytes, zero selects DefaultMemoryLimit.
	MemoryLimit int64
}

// New initializes the device context for the configured backend. It is called once per process.
func New(opts Options) (port.Accelerator, error) {
	if opts.Backend == BackendNPP {
		log.Debug().Msg("initializing NPP device")
		dev, err := NewNPPAccelerator(opts)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}

	dev, err := NewHostAccelerator(opts)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
