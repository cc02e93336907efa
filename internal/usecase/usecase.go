package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/lipsync/internal/domain/segments"
	"github.com/forPelevin/lipsync/internal/domain/unet"
	"github.com/forPelevin/lipsync/internal/ports"
	"github.com/forPelevin/lipsync/internal/types"
)

type Deps struct {
	Video   ports.VideoTool
	Lipsync ports.Lipsyncer

	// Seed draws a seed when the caller asks for a random one (-1).
	Seed func() int64
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Seed == nil {
		d.Seed = func() int64 { return rand.Int63n(math.MaxInt32) }
	}
	return Usecase{d: d}
}

type Input struct {
	VideoPath      string
	AudioPath      string
	CheckpointPath string
	OutputPath     string

	UNet           unet.Config
	CheckpointsDir string

	SegmentDuration time.Duration
	InferenceSteps  int
	GuidanceScale   float64
	Seed            int64

	WorkDir string
	Logf    func(format string, args ...any)
}

type Result struct {
	Manifest types.Manifest
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	segLen := in.SegmentDuration
	if segLen <= 0 {
		segLen = segments.DefaultDuration
	}

	whisper, err := unet.WhisperModelPath(in.CheckpointsDir, in.UNet.Model.CrossAttentionDim)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(whisper); err != nil {
		return Result{}, fmt.Errorf("whisper checkpoint: %w", err)
	}

	duration, err := u.d.Video.ProbeVideoDuration(ctx, in.VideoPath)
	if err != nil {
		return Result{}, err
	}
	segs, err := segments.Plan(duration, segLen)
	if err != nil {
		return Result{}, fmt.Errorf("plan segments: %w", err)
	}
	logf("video duration %.3fs, %d segment(s) of %s", duration.Seconds(), len(segs), segLen)

	segDir := filepath.Join(in.WorkDir, "segments")
	outDir := filepath.Join(in.WorkDir, "outputs")
	for _, dir := range []string{segDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	videos := make([]string, len(segs))
	for i, s := range segs {
		p := filepath.Join(segDir, fmt.Sprintf("%d.mp4", s.Index))
		if err := u.d.Video.CutVideo(ctx, in.VideoPath, p, s.Start, s.End); err != nil {
			return Result{}, err
		}
		videos[i] = p
	}
	audios := make([]string, len(segs))
	for i, s := range segs {
		p := filepath.Join(segDir, fmt.Sprintf("%d.mp3", s.Index))
		if err := u.d.Video.CutAudio(ctx, in.AudioPath, p, s.Start, s.End); err != nil {
			return Result{}, err
		}
		audios[i] = p
	}

	seed := in.Seed
	if seed == -1 {
		seed = u.d.Seed()
	}
	logf("initial seed: %d", seed)

	m := types.Manifest{
		Video:             in.VideoPath,
		Audio:             in.AudioPath,
		Checkpoint:        in.CheckpointPath,
		Output:            in.OutputPath,
		DurationSec:       duration.Seconds(),
		SegmentSec:        segLen.Seconds(),
		Seed:              seed,
		InferenceSteps:    in.InferenceSteps,
		GuidanceScale:     in.GuidanceScale,
		CrossAttentionDim: in.UNet.Model.CrossAttentionDim,
		WhisperModel:      whisper,
		NumFrames:         in.UNet.Data.NumFrames,
		Resolution:        in.UNet.Data.Resolution,
	}

	outputs := make([]string, 0, len(segs))
	for i, s := range segs {
		logf("processing segment %d/%d", s.Index, len(segs))

		out := filepath.Join(outDir, fmt.Sprintf("output_%d.mp4", s.Index))
		job := types.SegmentJob{
			Segment:        s,
			VideoPath:      videos[i],
			AudioPath:      audios[i],
			OutputPath:     out,
			MaskPath:       strings.TrimSuffix(out, ".mp4") + "_mask.mp4",
			InferenceSteps: in.InferenceSteps,
			GuidanceScale:  in.GuidanceScale,
			// Every segment starts from the same seed, so a run is
			// reproducible from the seed recorded in the manifest.
			Seed: seed,
		}
		// A reused workspace may hold clips from an earlier run; the pipeline
		// must produce these files itself.
		for _, stale := range []string{job.OutputPath, job.MaskPath} {
			if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return Result{}, fmt.Errorf("segment %d: remove stale output: %w", s.Index, err)
			}
		}
		if err := u.d.Lipsync.Process(ctx, job); err != nil {
			return Result{}, fmt.Errorf("segment %d: %w", s.Index, err)
		}
		outputs = append(outputs, out)

		ms := types.ManifestSegment{
			ID:       fmt.Sprintf("%03d", s.Index),
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
			Video:    videos[i],
			Audio:    audios[i],
			Output:   out,
		}
		if _, err := os.Stat(job.MaskPath); err == nil {
			ms.Mask = job.MaskPath
		}
		m.Segments = append(m.Segments, ms)
	}

	logf("combining segments")
	if err := u.d.Video.Concat(ctx, outputs, in.OutputPath); err != nil {
		return Result{}, err
	}

	return Result{Manifest: m}, nil
}
