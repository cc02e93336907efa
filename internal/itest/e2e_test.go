//go:build integration

package itest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/lipsync/internal/pipeline"
)

// passthroughInference stands in for the diffusion pipeline: it copies the
// segment video to the requested output.
const passthroughInference = `
while [ $# -gt 0 ]; do
  case "$1" in
    --video_path) in="$2" ;;
    --video_out_path) out="$2" ;;
  esac
  shift
done
cp "$in" "$out"
`

func writeLatentSyncRepo(t *testing.T, dir string) (script, unetCfg, ckpt string) {
	t.Helper()
	files := map[string]string{
		"scripts/inference.sh":           passthroughInference,
		"configs/unet.yaml":              "model:\n  cross_attention_dim: 384\ndata:\n  num_frames: 16\n  resolution: 256\n",
		"checkpoints/latentsync_unet.pt": "ckpt",
		"checkpoints/whisper/tiny.pt":    "whisper",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "scripts/inference.sh"),
		filepath.Join(dir, "configs/unet.yaml"),
		filepath.Join(dir, "checkpoints/latentsync_unet.pt")
}

func TestE2E(t *testing.T) {
	tmp := t.TempDir()
	video, audio := makeFixtures(t, tmp, 12)
	repo := filepath.Join(tmp, "LatentSync")
	script, unetCfg, ckpt := writeLatentSyncRepo(t, repo)

	out := filepath.Join(tmp, "out", "final.mp4")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		VideoPath:       video,
		AudioPath:       audio,
		CheckpointPath:  ckpt,
		OutputPath:      out,
		UNetConfigPath:  unetCfg,
		InferenceSteps:  20,
		GuidanceScale:   1.0,
		Seed:            -1,
		SegmentDuration: 5 * time.Second,
		CacheDir:        filepath.Join(tmp, "cache"),
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		PythonBin:       "/bin/sh",
		InferenceScript: script,
		LatentSyncDir:   repo,
		Logf:            t.Logf,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	m, err := pipeline.Run(ctx, cfg)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(m.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(m.Segments))
	}
	if m.Seed < 0 {
		t.Fatalf("expected a drawn seed, got %d", m.Seed)
	}

	got, err := probeDurationSeconds(out)
	if err != nil {
		t.Fatalf("probe output: %v", err)
	}
	if math.Abs(got-12) > 0.5 {
		t.Fatalf("expected ~12s output, got %.3fs", got)
	}
}
