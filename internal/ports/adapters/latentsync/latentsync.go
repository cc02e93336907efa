// Package latentsync runs the LatentSync per-clip inference script as an
// external process, one invocation per segment.
package latentsync

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/forPelevin/lipsync/internal/types"
)

type Options struct {
	Python         string
	Script         string
	Dir            string
	UNetConfigPath string
	CheckpointPath string
	Env            []string
}

type Adapter struct {
	python string
	script string
	dir    string
	unet   string
	ckpt   string
	env    []string
}

func New(opts Options) *Adapter {
	python := opts.Python
	if python == "" {
		python = "python3"
	}
	script := opts.Script
	if script == "" {
		script = "scripts/inference.py"
	}
	return &Adapter{
		python: python,
		script: script,
		dir:    opts.Dir,
		unet:   opts.UNetConfigPath,
		ckpt:   opts.CheckpointPath,
		env:    append([]string(nil), opts.Env...),
	}
}

func (a *Adapter) Process(ctx context.Context, job types.SegmentJob) error {
	cmd := exec.CommandContext(ctx, a.python, a.args(job)...)
	cmd.Dir = a.dir
	cmd.Env = append(os.Environ(), a.env...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "latentsync segment %d failed: %s", job.Index, strings.TrimSpace(string(b)))
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		return errors.Wrapf(err, "latentsync segment %d produced no output", job.Index)
	}
	return nil
}

func (a *Adapter) args(job types.SegmentJob) []string {
	args := []string{a.script}
	if a.unet != "" {
		args = append(args, "--unet_config_path", a.unet)
	}
	return append(args,
		"--inference_ckpt_path", a.ckpt,
		"--video_path", job.VideoPath,
		"--audio_path", job.AudioPath,
		"--video_out_path", job.OutputPath,
		"--inference_steps", strconv.Itoa(job.InferenceSteps),
		"--guidance_scale", strconv.FormatFloat(job.GuidanceScale, 'f', -1, 64),
		"--seed", strconv.FormatInt(job.Seed, 10),
	)
}
