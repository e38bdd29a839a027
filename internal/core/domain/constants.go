package domain

import "errors"

const (
	DefaultScale    = 0.5
	DefaultAsset    = "lena1.pgm"
	OutputSuffix    = "_resized"
	OutputExtension = ".pgm"
)

var (
	ErrListUnreadable       = errors.New("unable to open list file")
	ErrDegenerateSize       = errors.New("scale yields an empty destination image")
	ErrInvalidScale         = errors.New("scale must be a finite number greater than zero")
	ErrUnknownInterpolation = errors.New("unknown interpolation")
	ErrUnknownBackend       = errors.New("unknown accelerator backend")
	ErrBackendUnavailable   = errors.New("accelerator backend not available in this build")
	ErrOutOfMemory          = errors.New("device out of memory")
	ErrInvalidPointer       = errors.New("invalid device pointer")
	ErrInvalidROI           = errors.New("roi exceeds buffer bounds")
	ErrScratchTooSmall      = errors.New("scratch buffer too small for transform")
	ErrTransformFailed      = errors.New("device transform failed")
)
