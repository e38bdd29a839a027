package service

import (
	"context"
	"errors"
	"fmt"
	"gpuresize/internal/core/domain"
	"gpuresize/internal/core/port"
	"time"

	"github.com/rs/zerolog/log"
)

// ImagePipeline turns one WorkItem into one resized image on disk. Process never fails the caller:
// every failure is returned as part of the Result.
type ImagePipeline struct {
	device        port.Accelerator
	codec         port.ImageCodec
	prober        port.Prober
	interpolation domain.Interpolation
}

func NewImagePipeline(device port.Accelerator, codec port.ImageCodec, prober port.Prober,
	interpolation domain.Interpolation) *ImagePipeline {
	return &ImagePipeline{device: device, codec: codec, prober: prober, interpolation: interpolation}
}

func (p *ImagePipeline) Process(ctx context.Context, item domain.WorkItem) (res domain.Result) {
	start := time.Now()
	res = domain.Result{Item: item, Stage: domain.StageProbing}

	l := log.With().
		Str("path", item.Path).
		Float64("scale", item.Scale).
		Str("interpolation", p.interpolation.String()).
		Logger()

	scope := newDeviceScope(p.device, l)

	defer func() {
		if r := recover(); r != nil {
			res.Failure = domain.FailureDevice
			res.Err = fmt.Errorf("panic while %s: %v", res.Stage, r)
			res.Output = ""
		}
		scope.Close()
		res.Elapsed = time.Since(start)

		if res.OK() {
			l.Debug().Str("output", res.Output).Dur("elapsed", res.Elapsed).Msg("image processed")
		} else {
			l.Error().Err(res.Err).Str("failure", res.Failure.String()).Msg("image failed")
		}
	}()

	fail := func(kind domain.FailureKind, err error) domain.Result {
		l.Debug().Str("stage", res.Stage.String()).Msg("stage failed")
		res.Failure = kind
		res.Err = err
		return res
	}

	if err := p.prober.Probe(item.Path); err != nil {
		return fail(domain.FailureOpen, fmt.Errorf("unable to open file: %w", err))
	}

	res.Stage = domain.StageDecoding
	hostSrc, err := p.codec.Load(ctx, item.Path)
	if err != nil {
		return fail(domain.FailureDecode, fmt.Errorf("error decoding image %w", err))
	}
	res.Source = hostSrc.Size()

	res.Stage = domain.StageUploading
	devSrc, err := scope.mallocImage(res.Source)
	if err != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error allocating source image %w", err))
	}
	if err := p.device.Upload(ctx, devSrc, hostSrc); err != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error uploading source image %w", err))
	}

	res.Stage = domain.StageSizingDestination
	res.Dest = domain.ScaleSize(res.Source, item.Scale)
	if res.Dest.Empty() {
		return fail(domain.FailureSize, fmt.Errorf("%w: %s at scale %g gives %s",
			domain.ErrDegenerateSize, res.Source, item.Scale, res.Dest))
	}
	devDst, err := scope.mallocImage(res.Dest)
	if err != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error allocating destination image %w", err))
	}

	res.Stage = domain.StageAllocatingScratch
	scratchSize, err := p.device.ResizeBufferSize(res.Dest, p.interpolation)
	if err != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error querying scratch size %w", err))
	}
	scratch, err := scope.malloc(scratchSize)
	if err != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error allocating scratch buffer %w", err))
	}
	l.Debug().Int("bytes", scratchSize).Str("dest", res.Dest.String()).Msg("scratch buffer allocated")

	res.Stage = domain.StageTransforming
	resizeErr := p.device.Resize(ctx, domain.DefaultStream,
		devSrc, domain.FullROI(res.Source),
		devDst, domain.FullROI(res.Dest),
		p.interpolation, scratch)

	res.Stage = domain.StageReleasingScratch
	releaseErr := scope.release(scratch)

	if resizeErr != nil {
		res.Stage = domain.StageTransforming
		return fail(domain.FailureTransform, fmt.Errorf("error resizing image %w", resizeErr))
	}
	if releaseErr != nil {
		return fail(domain.FailureDevice, fmt.Errorf("error releasing scratch buffer %w", releaseErr))
	}

	res.Stage = domain.StageDownloading
	hostDst := domain.NewHostImage(res.Dest, devDst.Pitch)
	if err := p.device.Download(ctx, hostDst, devDst); err != nil {
		kind := domain.FailureDevice
		if errors.Is(err, domain.ErrTransformFailed) {
			kind = domain.FailureTransform
		}
		return fail(kind, fmt.Errorf("error downloading result %w", err))
	}

	res.Stage = domain.StageSaving
	output := domain.OutputPath(item.Path)
	if err := p.codec.Save(ctx, output, hostDst); err != nil {
		return fail(domain.FailureSave, fmt.Errorf("error saving %s %w", output, err))
	}

	res.Output = output
	res.Stage = domain.StageDone
	return res
}
