// Package unet reads the subset of the LatentSync UNet config that the driver
// needs to validate a run before any segment is processed.
package unet

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Model Model `yaml:"model"`
	Data  Data  `yaml:"data"`
}

type Model struct {
	CrossAttentionDim int `yaml:"cross_attention_dim"`
}

type Data struct {
	NumFrames  int `yaml:"num_frames"`
	Resolution int `yaml:"resolution"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read unet config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse unet config: %w", err)
	}
	return c, nil
}

// WhisperModelPath maps the UNet cross attention width to the whisper
// checkpoint the audio encoder was trained with.
func WhisperModelPath(checkpointsDir string, crossAttentionDim int) (string, error) {
	switch crossAttentionDim {
	case 768:
		return filepath.Join(checkpointsDir, "whisper", "small.pt"), nil
	case 384:
		return filepath.Join(checkpointsDir, "whisper", "tiny.pt"), nil
	default:
		return "", fmt.Errorf("cross_attention_dim must be 768 or 384, got %d", crossAttentionDim)
	}
}
