package codec

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

var (
	ErrNotPGM           = errors.New("pgm: not a PGM file")
	ErrBadHeader        = errors.New("pgm: invalid header")
	ErrShortRaster      = errors.New("pgm: truncated raster")
	ErrSampleOutOfRange = errors.New("pgm: sample exceeds maxval")
)

const (
	maxDimension = 1 << 16
	// initialRaster caps the up-front raster reservation in bytes.
	initialRaster = 1 << 20
)

func init() {
	image.RegisterFormat("pgm", "P5", DecodePGM, DecodePGMConfig)
	image.RegisterFormat("pgm", "P2", DecodePGM, DecodePGMConfig)
}

type pgmHeader struct {
	plain  bool
	width  int
	height int
	maxval int
}

// pgmReader tokenizes netpbm headers and plain rasters, skipping whitespace and '#' comments.
type pgmReader struct {
	r *bufio.Reader
}

func (p *pgmReader) token() (string, error) {
	var buf []byte
	for {
		c, err := p.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return string(buf), nil
			}
			return "", err
		}

		switch {
		case c == '#' && len(buf) == 0:
			if _, err := p.r.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
		case isSpace(c):
			if len(buf) > 0 {
				return string(buf), nil
			}
		default:
			buf = append(buf, c)
		}
	}
}

func (p *pgmReader) number(name string, lo, hi int) (int, error) {
	tok, err := p.token()
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %w", ErrBadHeader, name, err)
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %q", ErrBadHeader, name, tok)
	}
	return v, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func readHeader(p *pgmReader) (pgmHeader, error) {
	var h pgmHeader

	magic := make([]byte, 2)
	if _, err := io.ReadFull(p.r, magic); err != nil {
		return h, fmt.Errorf("%w: %w", ErrNotPGM, err)
	}
	switch string(magic) {
	case "P5":
	case "P2":
		h.plain = true
	default:
		return h, fmt.Errorf("%w: magic %q", ErrNotPGM, magic)
	}

	var err error
	if h.width, err = p.number("width", 1, maxDimension); err != nil {
		return h, err
	}
	if h.height, err = p.number("height", 1, maxDimension); err != nil {
		return h, err
	}
	if h.maxval, err = p.number("maxval", 1, 65535); err != nil {
		return h, err
	}

	return h, nil
}

func DecodePGMConfig(r io.Reader) (image.Config, error) {
	h, err := readHeader(&pgmReader{r: bufio.NewReader(r)})
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.GrayModel, Width: h.width, Height: h.height}, nil
}

// DecodePGM reads a binary (P5) or plain (P2) graymap. Samples are rescaled from maxval to 8 bits.
// The raster grows with the samples actually read, so a header cannot reserve more memory than the
// input backs.
func DecodePGM(r io.Reader) (image.Image, error) {
	p := &pgmReader{r: bufio.NewReader(r)}
	h, err := readHeader(p)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, 0, min(h.width*h.height, initialRaster))
	if h.plain {
		pix, err = decodePlain(p, h, pix)
	} else {
		pix, err = decodeRaw(p, h, pix)
	}
	if err != nil {
		return nil, err
	}

	return &image.Gray{Pix: pix, Stride: h.width, Rect: image.Rect(0, 0, h.width, h.height)}, nil
}

func rescale(v, maxval int) uint8 {
	if maxval == 255 {
		return uint8(v)
	}
	return uint8((v*255 + maxval/2) / maxval)
}

func decodeRaw(p *pgmReader, h pgmHeader, pix []byte) ([]byte, error) {
	bps := 1
	if h.maxval > 255 {
		bps = 2
	}

	row := make([]byte, h.width*bps)
	for y := 0; y < h.height; y++ {
		if _, err := io.ReadFull(p.r, row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrShortRaster, y, err)
		}

		for x := 0; x < h.width; x++ {
			v := int(row[x])
			if bps == 2 {
				v = int(row[2*x])<<8 | int(row[2*x+1])
			}
			if v > h.maxval {
				return nil, fmt.Errorf("%w: %d > %d at (%d,%d)", ErrSampleOutOfRange, v, h.maxval, x, y)
			}
			pix = append(pix, rescale(v, h.maxval))
		}
	}

	return pix, nil
}

func decodePlain(p *pgmReader, h pgmHeader, pix []byte) ([]byte, error) {
	for y := 0; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			tok, err := p.token()
			if err != nil {
				return nil, fmt.Errorf("%w: sample (%d,%d): %w", ErrShortRaster, x, y, err)
			}
			v, err := strconv.Atoi(tok)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: sample %q", ErrBadHeader, tok)
			}
			if v > h.maxval {
				return nil, fmt.Errorf("%w: %d > %d at (%d,%d)", ErrSampleOutOfRange, v, h.maxval, x, y)
			}
			pix = append(pix, rescale(v, h.maxval))
		}
	}

	return pix, nil
}

// EncodePGM writes img as a binary graymap with maxval 255.
func EncodePGM(w io.Writer, img *image.Gray) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n255\n", b.Dx(), b.Dy()); err != nil {
		return err
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := bw.Write(img.Pix[off : off+b.Dx()]); err != nil {
			return err
		}
	}

	return bw.Flush()
}
