package service_test

import (
	"bytes"
	"gpuresize/internal/adapters/accelerator"
	"gpuresize/internal/adapters/codec"
	"gpuresize/internal/adapters/file"
	"gpuresize/internal/core/domain"
	"gpuresize/internal/core/service"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGray(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i % 251)
	}

	var buf bytes.Buffer
	require.NoError(t, codec.EncodePGM(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestPipelineOnHostDeviceBalancesAllocations(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.pgm")
	huge := filepath.Join(dir, "huge.pgm")
	writeGray(t, small, 128, 96)
	writeGray(t, huge, 1024, 1024)

	dev, err := accelerator.NewHostAccelerator(accelerator.Options{MemoryLimit: 1 << 18})
	require.NoError(t, err)
	defer dev.Close()

	pipeline := service.NewImagePipeline(dev, codec.New(), file.Prober{}, domain.InterpolationLanczos)

	tests := []struct {
		name    string
		item    domain.WorkItem
		wantOK  bool
		failure domain.FailureKind
	}{
		{name: "success", item: domain.WorkItem{Path: small, Scale: 0.5}, wantOK: true},
		{name: "missing", item: domain.WorkItem{Path: filepath.Join(dir, "nope.pgm"), Scale: 0.5}, failure: domain.FailureOpen},
		{name: "degenerate", item: domain.WorkItem{Path: small, Scale: 0.001}, failure: domain.FailureSize},
		{name: "out of device memory", item: domain.WorkItem{Path: huge, Scale: 0.5}, failure: domain.FailureDevice},
		{name: "success after failures", item: domain.WorkItem{Path: small, Scale: 0.25}, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := pipeline.Process(testContext(t), tc.item)
			assert.Equal(t, tc.wantOK, res.OK(), res.Reason())
			assert.Equal(t, tc.failure, res.Failure)

			stats := dev.Stats()
			assert.Equal(t, 0, stats.LiveAllocations)
			assert.Equal(t, stats.Allocations, stats.Frees)
		})
	}

	assert.FileExists(t, filepath.Join(dir, "small_resized.pgm"))
	assert.NoFileExists(t, filepath.Join(dir, "huge_resized.pgm"))
}

func TestPipelineSurvivesHugeUpscaleWithDefaultDevice(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lena.pgm")
	writeGray(t, src, 512, 512)

	dev, err := accelerator.NewHostAccelerator(accelerator.Options{})
	require.NoError(t, err)
	defer dev.Close()

	pipeline := service.NewImagePipeline(dev, codec.New(), file.Prober{}, domain.InterpolationLanczos)

	res := pipeline.Process(testContext(t), domain.WorkItem{Path: src, Scale: 400})
	require.False(t, res.OK())
	assert.Equal(t, domain.FailureDevice, res.Failure)
	assert.ErrorIs(t, res.Err, domain.ErrOutOfMemory)
	assert.NoFileExists(t, filepath.Join(dir, "lena_resized.pgm"))

	res = pipeline.Process(testContext(t), domain.WorkItem{Path: src, Scale: 0.5})
	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, domain.Size{Width: 256, Height: 256}, res.Dest)

	stats := dev.Stats()
	assert.Equal(t, 0, stats.LiveAllocations)
	assert.Equal(t, stats.Allocations, stats.Frees)
}
