package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gpuresize/internal/adapters/file"
	"gpuresize/internal/core/domain"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// MaxPixels bounds the decoded size of a loaded image.
const MaxPixels = 1 << 28

var ErrImageTooLarge = errors.New("image exceeds the decodable pixel count")

// Codec loads any registered image format as 8-bit gray and always saves PGM.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}

func (c *Codec) Load(ctx context.Context, path string) (*domain.HostImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := file.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("error decoding %s: %w: %dx%d", path, ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	host := toHost(img)
	log.Debug().
		Str("path", path).
		Str("format", format).
		Int("width", host.Width).
		Int("height", host.Height).
		Msg("decoded image")

	return host, nil
}

func (c *Codec) Save(ctx context.Context, path string, img *domain.HostImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(img.Width*img.Height + 32)
	if err := EncodePGM(&buf, img.Gray()); err != nil {
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	return file.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// toHost converts img to a single-channel host image, sharing memory when img is already gray.
func toHost(img image.Image) *domain.HostImage {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return &domain.HostImage{Width: g.Rect.Dx(), Height: g.Rect.Dy(), Pitch: g.Stride, Pix: g.Pix}
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	return &domain.HostImage{Width: b.Dx(), Height: b.Dy(), Pitch: gray.Stride, Pix: gray.Pix}
}
