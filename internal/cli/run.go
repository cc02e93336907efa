package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forPelevin/lipsync/internal/config"
	"github.com/forPelevin/lipsync/internal/logging"
	"github.com/forPelevin/lipsync/internal/pipeline"
)

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	flags := cmd.Flags()
	ckpt, _ := flags.GetString("inference-ckpt-path")
	video, _ := flags.GetString("video-path")
	audio, _ := flags.GetString("audio-path")
	out, _ := flags.GetString("video-out-path")
	unetPath, _ := flags.GetString("unet-config-path")
	steps, _ := flags.GetInt("inference-steps")
	guidance, _ := flags.GetFloat64("guidance-scale")
	seed, _ := flags.GetInt64("seed")
	segLen, _ := flags.GetDuration("segment-duration")
	clean, _ := flags.GetBool("clean")

	paths := []*string{&ckpt, &video, &audio, &out, &unetPath}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return err
		}
		*p = abs
	}
	if unetPath == "" {
		unetPath = cfg.InRepo(cfg.LatentSync.UNetConfig)
	}
	if segLen == 0 {
		segLen = cfg.SegmentDuration()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Input video path: %s\n", video)
	fmt.Fprintf(w, "Input audio path: %s\n", audio)
	fmt.Fprintf(w, "Loaded checkpoint path: %s\n", ckpt)

	pcfg := pipeline.Config{
		VideoPath:      video,
		AudioPath:      audio,
		CheckpointPath: ckpt,
		OutputPath:     out,
		UNetConfigPath: unetPath,

		InferenceSteps:  steps,
		GuidanceScale:   guidance,
		Seed:            seed,
		SegmentDuration: segLen,

		CacheDir: cfg.Workspace.CacheDir,
		Clean:    clean,

		FFmpegPath:  cfg.Tools.FFmpeg,
		FFprobePath: cfg.Tools.FFprobe,

		PythonBin:       cfg.Tools.Python,
		LatentSyncDir:   cfg.LatentSync.Dir,
		InferenceScript: cfg.LatentSync.Script,
		CheckpointsDir:  cfg.LatentSync.CheckpointsDir,
		Env:             cfg.Environ(),

		Logf: logging.Logf(logger),
	}
	if err := pcfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := pipeline.Run(ctx, pcfg)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(m.Segments))
	for _, s := range m.Segments {
		rows = append(rows, []string{
			s.ID,
			strconv.FormatFloat(s.StartSec, 'f', 3, 64),
			strconv.FormatFloat(s.EndSec, 'f', 3, 64),
			filepath.Base(s.Output),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Segment", "Start", "End", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "seed: %d\n", m.Seed)
	fmt.Fprintln(w, m.Output)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	return logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}
