package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ProbeVideoDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,duration:format=duration",
		"-of", "json",
		inMP4,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return 0, errors.Wrapf(err, "ffprobe duration: %s", strings.TrimSpace(stderr.String()))
	}
	return parseVideoDuration(b)
}

func (a *Adapter) CutVideo(ctx context.Context, inMP4, outMP4 string, start, end time.Duration) error {
	return a.run(ctx, "cut video", cutVideoArgs(inMP4, outMP4, start, end))
}

func (a *Adapter) CutAudio(ctx context.Context, inAudio, outMP3 string, start, end time.Duration) error {
	return a.run(ctx, "cut audio", cutAudioArgs(inAudio, outMP3, start, end))
}

func (a *Adapter) Concat(ctx context.Context, inputs []string, outMP4 string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat: no inputs")
	}
	return a.run(ctx, "concat", concatArgs(inputs, outMP4))
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "ffmpeg %s: %s", op, strings.TrimSpace(string(b)))
	}
	return nil
}

func cutVideoArgs(inMP4, outMP4 string, start, end time.Duration) []string {
	return ffmpeggo.Input(inMP4, ffmpeggo.KwArgs{"ss": fmtSeconds(start)}).
		Output(outMP4, ffmpeggo.KwArgs{
			"t":      fmtSeconds(end - start),
			"crf":    "28",
			"c:v":    "libx264",
			"preset": "ultrafast",
			"vf":     "fps=30,format=yuv420p",
			"c:a":    "aac",
			"strict": "experimental",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

func cutAudioArgs(inAudio, outMP3 string, start, end time.Duration) []string {
	return ffmpeggo.Input(inAudio, ffmpeggo.KwArgs{"ss": fmtSeconds(start)}).
		Output(outMP3, ffmpeggo.KwArgs{
			"t":      fmtSeconds(end - start),
			"f":      "mp3",
			"acodec": "libmp3lame",
			"b:a":    "128k",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

func concatArgs(inputs []string, outMP4 string) []string {
	var filter strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filter, "[%d:v:0][%d:a:0]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[v][a]", len(inputs))

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	return append(args,
		"-filter_complex", filter.String(),
		"-hide_banner",
		"-loglevel", "error",
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-r", "30",
		outMP4,
	)
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseVideoDuration reads the first video stream's duration from ffprobe
// JSON, falling back to the container duration.
func parseVideoDuration(b []byte) (time.Duration, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return 0, errors.Wrap(err, "parse ffprobe output")
	}
	found := false
	raw := ""
	for _, s := range p.Streams {
		if s.CodecType == "video" {
			found = true
			raw = s.Duration
			break
		}
	}
	if !found {
		return 0, errors.New("ffprobe: no video stream found")
	}
	if raw == "" || raw == "N/A" {
		raw = p.Format.Duration
	}
	sec, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse duration %q", raw)
	}
	if sec <= 0 {
		return 0, errors.Errorf("ffprobe: non-positive duration %q", raw)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
