package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/lipsync/internal/config"
	"github.com/forPelevin/lipsync/internal/deps"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools and LatentSync assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			statuses := deps.Check(requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case !s.Available && s.Optional:
					state = "optional"
				case !s.Available:
					state = "missing"
				}
				rows = append(rows, []string{s.Name, state, s.Target, s.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Dependency", "Status", "Target", "Detail"}, rows, nil))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
}

func requirements(cfg *config.Config) []deps.Requirement {
	whisper := filepath.Join(cfg.LatentSync.CheckpointsDir, "whisper")
	return []deps.Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Cuts and joins clips"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Probes input duration"},
		{Name: "Python", Command: cfg.Tools.Python, Description: "Runs the LatentSync pipeline"},
		{Name: "Inference script", Path: cfg.LatentSync.Script},
		{Name: "UNet config", Path: cfg.InRepo(cfg.LatentSync.UNetConfig)},
		{Name: "Whisper small", Path: filepath.Join(whisper, "small.pt"), Optional: true},
		{Name: "Whisper tiny", Path: filepath.Join(whisper, "tiny.pt"), Optional: true},
	}
}
