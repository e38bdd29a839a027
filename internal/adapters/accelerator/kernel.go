package accelerator

import (
	"fmt"
	"gpuresize/internal/core/domain"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

const (
	BackendNFNT  = "nfnt"
	BackendXDraw = "xdraw"
	BackendNPP   = "npp"
)

// resampler scales the srcRect part of src into the dstRect part of dst.
type resampler interface {
	name() string
	resample(dst *image.Gray, dstRect image.Rectangle, src *image.Gray, srcRect image.Rectangle,
		interpolation domain.Interpolation) error
}

func newResampler(backend string) (resampler, error) {
	switch backend {
	case BackendNFNT, "":
		return nfntResampler{}, nil
	case BackendXDraw:
		return xdrawResampler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, backend)
	}
}

type nfntResampler struct{}

func (nfntResampler) name() string { return BackendNFNT }

func (nfntResampler) resample(dst *image.Gray, dstRect image.Rectangle, src *image.Gray, srcRect image.Rectangle,
	interpolation domain.Interpolation) error {
	var fn resize.InterpolationFunction
	switch interpolation {
	case domain.InterpolationNearest:
		fn = resize.NearestNeighbor
	case domain.InterpolationLinear:
		fn = resize.Bilinear
	case domain.InterpolationCubic:
		fn = resize.Bicubic
	case domain.InterpolationLanczos:
		fn = resize.Lanczos3
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownInterpolation, interpolation)
	}

	out := resize.Resize(uint(dstRect.Dx()), uint(dstRect.Dy()), src.SubImage(srcRect), fn)
	draw.Draw(dst, dstRect, out, out.Bounds().Min, draw.Src)
	return nil
}

type xdrawResampler struct{}

func (xdrawResampler) name() string { return BackendXDraw }

// lanczos3 is the windowed sinc kernel with a support of three lobes.
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t >= 3 {
			return 0
		}
		pt := math.Pi * t
		return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
	},
}

func (xdrawResampler) resample(dst *image.Gray, dstRect image.Rectangle, src *image.Gray, srcRect image.Rectangle,
	interpolation domain.Interpolation) error {
	var scaler draw.Scaler
	switch interpolation {
	case domain.InterpolationNearest:
		scaler = draw.NearestNeighbor
	case domain.InterpolationLinear:
		scaler = draw.BiLinear
	case domain.InterpolationCubic:
		scaler = draw.CatmullRom
	case domain.InterpolationLanczos:
		scaler = lanczos3
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownInterpolation, interpolation)
	}

	scaler.Scale(dst, dstRect, src, srcRect, draw.Src, nil)
	return nil
}

// resizeBufferSize is the scratch requirement of a separable resize producing dst: per-axis
// coefficient tables (weight and index per tap) plus one row accumulator.
func resizeBufferSize(dst domain.Size, interpolation domain.Interpolation) (int, error) {
	if dst.Empty() {
		return 0, fmt.Errorf("%w: destination %s", domain.ErrDegenerateSize, dst)
	}
	if interpolation < domain.InterpolationNearest || interpolation > domain.InterpolationLanczos {
		return 0, fmt.Errorf("%w: %d", domain.ErrUnknownInterpolation, int(interpolation))
	}

	taps := interpolation.Taps()
	return (dst.Width+dst.Height)*taps*8 + dst.Width*4, nil
}
