//go:build integration

package itest

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func probeDurationSeconds(mp4Path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// makeFixtures renders a test pattern video with a tone and a separate
// speech-like audio track of the given length.
func makeFixtures(t *testing.T, dir string, seconds int) (video, audio string) {
	t.Helper()
	video = filepath.Join(dir, "input.mp4")
	audio = filepath.Join(dir, "voice.wav")
	d := strconv.Itoa(seconds)

	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi", "-i", "testsrc=size=256x256:rate=25:duration="+d,
		"-f", "lavfi", "-i", "sine=frequency=440:duration="+d,
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		video,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg video fixture failed: %v\n%s", err, string(b))
	}

	fa := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi", "-i", "sine=frequency=220:duration="+d,
		audio,
	)
	if b, err := fa.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg audio fixture failed: %v\n%s", err, string(b))
	}
	return video, audio
}

func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd, nil
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}
	return "", errors.New("go.mod not found above working directory")
}
