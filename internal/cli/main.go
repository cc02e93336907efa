package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/lipsync/internal/domain/segments"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "lipsync",
		Short:        "Lip-sync a video to an audio track in fixed-length segments",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Config file (default ./lipsync.toml or ~/.config/lipsync/config.toml)")
	root.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	f := root.Flags()
	f.String("inference-ckpt-path", "", "LatentSync UNet checkpoint")
	f.String("video-path", "", "Input video")
	f.String("audio-path", "", "Input audio")
	f.String("video-out-path", "", "Output video")
	f.String("unet-config-path", "", "UNet config (default latentsync.unet_config from config)")
	f.Int("inference-steps", 20, "Denoising steps per segment")
	f.Float64("guidance-scale", 1.0, "Classifier-free guidance scale")
	f.Int64("seed", 1247, "Random seed, -1 for a random one")
	f.Duration("segment-duration", 0, fmt.Sprintf("Segment length (default workspace.segment_seconds, %s)", segments.DefaultDuration))
	f.Bool("clean", false, "Remove intermediate clips after a successful run")
	for _, name := range []string{"inference-ckpt-path", "video-path", "audio-path", "video-out-path"} {
		_ = root.MarkFlagRequired(name)
	}

	root.AddCommand(newCheckCommand(), newConfigCommand())
	return root
}
