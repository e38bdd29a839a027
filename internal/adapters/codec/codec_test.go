package codec

import (
	"bytes"
	"context"
	"gpuresize/internal/core/domain"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePGM(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		width   int
		wantErr error
	}{
		{
			name:  "binary",
			input: "P5\n3 2\n255\n\x00\x80\xff\x01\x02\x03",
			want:  []byte{0, 128, 255, 1, 2, 3},
			width: 3,
		},
		{
			name:  "binary with comments",
			input: "P5\n# created by scanner\n2 1 # size\n255\n\x10\x20",
			want:  []byte{16, 32},
			width: 2,
		},
		{
			name:  "plain",
			input: "P2\n2 2\n15\n0 15\n# mid\n 7\t8\n",
			want:  []byte{0, 255, 119, 136},
			width: 2,
		},
		{
			name:  "sixteen bit",
			input: "P5 2 1 65535\n\x00\x00\xff\xff",
			want:  []byte{0, 255},
			width: 2,
		},
		{
			name:    "bad magic",
			input:   "P6\n1 1\n255\n\x00\x00\x00",
			wantErr: ErrNotPGM,
		},
		{
			name:    "zero width",
			input:   "P5\n0 1\n255\n",
			wantErr: ErrBadHeader,
		},
		{
			name:    "maxval too large",
			input:   "P5\n1 1\n70000\n\x00",
			wantErr: ErrBadHeader,
		},
		{
			name:    "truncated raster",
			input:   "P5\n4 4\n255\n\x00\x01",
			wantErr: ErrShortRaster,
		},
		{
			name:    "sample above maxval",
			input:   "P2\n1 1\n10\n11\n",
			wantErr: ErrSampleOutOfRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodePGM(strings.NewReader(tc.input))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			gray, ok := img.(*image.Gray)
			require.True(t, ok)
			assert.Equal(t, tc.width, gray.Bounds().Dx())
			assert.Equal(t, tc.want, gray.Pix)
		})
	}
}

func TestDecodePGMConfig(t *testing.T) {
	cfg, format, err := image.DecodeConfig(strings.NewReader("P5\n# c\n640 480\n255\n"))
	require.NoError(t, err)
	assert.Equal(t, "pgm", format)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.Equal(t, color.GrayModel, cfg.ColorModel)
}

func TestEncodePGM(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 16)
	}

	var buf bytes.Buffer
	require.NoError(t, EncodePGM(&buf, img.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)))

	want := append([]byte("P5\n2 2\n255\n"), 5*16, 6*16, 9*16, 10*16)
	assert.Equal(t, want, buf.Bytes())

	decoded, format, err := image.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "pgm", format)
	assert.Equal(t, []byte{80, 96, 144, 160}, decoded.(*image.Gray).Pix)
}

func TestCodec_LoadPGM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pgm")
	require.NoError(t, os.WriteFile(path, []byte("P5\n2 2\n255\n\x01\x02\x03\x04"), 0o644))

	img, err := New().Load(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, domain.Size{Width: 2, Height: 2}, img.Size())
	assert.Equal(t, []byte{1, 2, 3, 4}, img.Pix)
}

func TestCodec_LoadColorPNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	src.Set(2, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	path := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, err := New().Load(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, domain.Size{Width: 3, Height: 1}, img.Size())

	gray := img.Gray()
	assert.Less(t, gray.GrayAt(0, 0).Y, gray.GrayAt(1, 0).Y, "green is brighter than red")
	assert.Equal(t, uint8(255), gray.GrayAt(2, 0).Y)
}

func TestCodec_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pgm")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.pgm")},
		{name: "undecodable", path: garbage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := New().Load(testContext(t), tc.path)
			require.Error(t, err)
			assert.Nil(t, img)
		})
	}
}

func TestDecodePGMTruncatedHugeHeaderStaysSmall(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "raw", input: "P5\n65536 65536\n255\n\x00"},
		{name: "plain", input: "P2\n65536 65536\n255\n0 1 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)

			img, err := DecodePGM(strings.NewReader(tc.input))

			runtime.ReadMemStats(&after)
			require.ErrorIs(t, err, ErrShortRaster)
			assert.Nil(t, img)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
		})
	}
}

func TestCodec_LoadRejectsOversizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bomb.pgm")
	require.NoError(t, os.WriteFile(path, []byte("P5\n65536 65536\n255\n\x00"), 0o644))

	img, err := New().Load(testContext(t), path)
	require.ErrorIs(t, err, ErrImageTooLarge)
	assert.Nil(t, img)
}

func TestCodec_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out_resized.pgm")

	img := domain.NewHostImage(domain.Size{Width: 3, Height: 2}, 64)
	copy(img.Pix[0:], []byte{1, 2, 3})
	copy(img.Pix[64:], []byte{4, 5, 6})

	require.NoError(t, New().Save(testContext(t), path, img))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("P5\n3 2\n255\n"), 1, 2, 3, 4, 5, 6), data)

	loaded, err := New().Load(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, img.Size(), loaded.Size())
}

func TestCodec_SaveCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pgm")
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	err := New().Save(ctx, path, domain.NewHostImage(domain.Size{Width: 1, Height: 1}, 1))
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
