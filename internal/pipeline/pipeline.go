package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/lipsync/internal/domain/unet"
	"github.com/forPelevin/lipsync/internal/ports"
	"github.com/forPelevin/lipsync/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/lipsync/internal/ports/adapters/latentsync"
	"github.com/forPelevin/lipsync/internal/types"
	"github.com/forPelevin/lipsync/internal/usecase"
)

type Config struct {
	VideoPath      string
	AudioPath      string
	CheckpointPath string
	OutputPath     string
	UNetConfigPath string

	InferenceSteps  int
	GuidanceScale   float64
	Seed            int64
	SegmentDuration time.Duration

	// CacheDir is the base directory for per-run clips and outputs.
	// If empty, defaults to ".cache".
	CacheDir string
	// Clean removes intermediate clips after a successful run.
	Clean bool

	FFmpegPath  string
	FFprobePath string

	PythonBin       string
	LatentSyncDir   string
	InferenceScript string
	CheckpointsDir  string
	Env             []string

	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	required := []struct{ name, path string }{
		{"video", c.VideoPath},
		{"audio", c.AudioPath},
		{"checkpoint", c.CheckpointPath},
		{"unet config", c.UNetConfigPath},
	}
	for _, r := range required {
		if r.path == "" {
			return fmt.Errorf("%s path is empty", r.name)
		}
		info, err := os.Stat(r.path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", r.name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s path %s is a directory", r.name, r.path)
		}
	}
	if c.OutputPath == "" {
		return errors.New("output path is empty")
	}
	if c.InferenceSteps <= 0 {
		return fmt.Errorf("inference steps must be > 0")
	}
	if c.GuidanceScale < 0 {
		return fmt.Errorf("guidance scale must be >= 0")
	}
	if c.Seed < -1 {
		return fmt.Errorf("seed must be >= -1")
	}
	if c.SegmentDuration <= 0 {
		return fmt.Errorf("segment duration must be > 0")
	}
	return nil
}

// Run cuts, lip-syncs, and reassembles the input. It returns the manifest
// that is also written to the run workspace.
func Run(ctx context.Context, cfg Config) (types.Manifest, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	model, err := unet.Load(cfg.UNetConfigPath)
	if err != nil {
		return types.Manifest{}, err
	}

	checkpointsDir := cfg.CheckpointsDir
	if checkpointsDir == "" {
		checkpointsDir = filepath.Dir(cfg.CheckpointPath)
	}

	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	ls := latentsync.New(latentsync.Options{
		Python:         cfg.PythonBin,
		Script:         cfg.InferenceScript,
		Dir:            cfg.LatentSyncDir,
		UNetConfigPath: cfg.UNetConfigPath,
		CheckpointPath: cfg.CheckpointPath,
		Env:            cfg.Env,
	})

	uc := usecase.New(usecase.Deps{
		Video:   v,
		Lipsync: ls,
	})

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	workDir, err := filepath.Abs(filepath.Join(baseCache, "runs", jobID(cfg)))
	if err != nil {
		return types.Manifest{}, err
	}
	logf("preparing workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	logf("workspace: %s", workDir)

	unlock, err := lockWorkspace(workDir)
	if err != nil {
		return types.Manifest{}, err
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return types.Manifest{}, err
	}

	res, err := uc.Run(ctx, usecase.Input{
		VideoPath:       cfg.VideoPath,
		AudioPath:       cfg.AudioPath,
		CheckpointPath:  cfg.CheckpointPath,
		OutputPath:      cfg.OutputPath,
		UNet:            model,
		CheckpointsDir:  checkpointsDir,
		SegmentDuration: cfg.SegmentDuration,
		InferenceSteps:  cfg.InferenceSteps,
		GuidanceScale:   cfg.GuidanceScale,
		Seed:            cfg.Seed,
		WorkDir:         workDir,
		Logf:            logf,
	})
	if err != nil {
		return types.Manifest{}, err
	}

	m := res.Manifest
	m.RunID = uuid.NewString()
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(workDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return types.Manifest{}, err
	}
	logf("manifest written (%d segments): %s", len(m.Segments), manifestPath)

	if cfg.Clean {
		for _, dir := range []string{"segments", "outputs"} {
			if err := os.RemoveAll(filepath.Join(workDir, dir)); err != nil {
				return m, fmt.Errorf("clean workspace: %w", err)
			}
		}
		logf("intermediate clips removed")
	}
	return m, nil
}

func lockWorkspace(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("workspace %s is in use by another run", dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// jobID keys the workspace on the inputs that determine the clips.
func jobID(cfg Config) string {
	return hash(fmt.Sprintf("%s|%s|%s|%s", cfg.VideoPath, cfg.AudioPath, cfg.CheckpointPath, cfg.SegmentDuration))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.Lipsyncer = (*latentsync.Adapter)(nil)
