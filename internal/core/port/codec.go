package port

import (
	"context"
	"gpuresize/internal/core/domain"
)

type ImageCodec interface {
	// Load decodes the file at path into a host-resident 8-bit single-channel image.
	Load(ctx context.Context, path string) (*domain.HostImage, error)
	// Save encodes img and writes it to path.
	Save(ctx context.Context, path string, img *domain.HostImage) error
}

type Prober interface {
	// Probe checks that path can be opened for reading.
	Probe(path string) error
}
