package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools names the external binaries the driver shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Python  string `toml:"python"`
}

// LatentSync locates the lip-sync pipeline checkout and its assets.
type LatentSync struct {
	Dir            string            `toml:"dir"`
	Script         string            `toml:"script"`
	CheckpointsDir string            `toml:"checkpoints_dir"`
	UNetConfig     string            `toml:"unet_config"`
	Env            map[string]string `toml:"env"`
}

type Workspace struct {
	CacheDir       string  `toml:"cache_dir"`
	SegmentSeconds float64 `toml:"segment_seconds"`
}

type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type Config struct {
	Tools      Tools      `toml:"tools"`
	LatentSync LatentSync `toml:"latentsync"`
	Workspace  Workspace  `toml:"workspace"`
	Logging    Logging    `toml:"logging"`
}

func Default() Config {
	return Config{
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Python:  "python3",
		},
		LatentSync: LatentSync{
			Dir:            ".",
			Script:         "scripts/inference.py",
			CheckpointsDir: "checkpoints",
			UNetConfig:     "configs/unet.yaml",
		},
		Workspace: Workspace{
			CacheDir:       "~/.cache/lipsync",
			SegmentSeconds: 5,
		},
		Logging: Logging{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load locates, parses, and validates a configuration file. A missing file
// yields defaults. Environment overrides are applied after the file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("LIPSYNC_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("lipsync.toml")
	if err != nil {
		return "", false, err
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	for _, p := range []string{projectPath, defaultPath} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
	}
	return defaultPath, false, nil
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lipsync/config.toml")
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("LIPSYNC_PYTHON")); v != "" {
		c.Tools.Python = v
	}
	if v := strings.TrimSpace(os.Getenv("LIPSYNC_LATENTSYNC_DIR")); v != "" {
		c.LatentSync.Dir = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.LatentSync.Dir, err = expandPath(c.LatentSync.Dir); err != nil {
		return err
	}
	if c.Workspace.CacheDir, err = expandPath(c.Workspace.CacheDir); err != nil {
		return err
	}
	if c.Logging.File != "" {
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return err
		}
	}
	c.LatentSync.CheckpointsDir = c.InRepo(c.LatentSync.CheckpointsDir)
	c.LatentSync.Script = c.InRepo(c.LatentSync.Script)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return errors.New("tools.ffmpeg and tools.ffprobe are required")
	}
	if strings.TrimSpace(c.Tools.Python) == "" {
		return errors.New("tools.python is required")
	}
	if c.Workspace.SegmentSeconds <= 0 {
		return fmt.Errorf("workspace.segment_seconds must be > 0, got %v", c.Workspace.SegmentSeconds)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// SegmentDuration returns the configured clip length.
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.Workspace.SegmentSeconds * float64(time.Second))
}

// InRepo resolves a relative path against the LatentSync checkout.
func (c *Config) InRepo(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.LatentSync.Dir, p)
}

// Environ renders latentsync.env as KEY=VALUE pairs in a stable order.
func (c *Config) Environ() []string {
	keys := make([]string, 0, len(c.LatentSync.Env))
	for k := range c.LatentSync.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.LatentSync.Env[k])
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
