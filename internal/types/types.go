package types

import "time"

// Segment is one fixed-length slice of the input timeline. Index is 1-based.
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
}

func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// SegmentJob is a single lip-sync pipeline invocation.
type SegmentJob struct {
	Segment

	VideoPath  string
	AudioPath  string
	OutputPath string
	MaskPath   string

	InferenceSteps int
	GuidanceScale  float64
	Seed           int64
}

type Manifest struct {
	RunID      string `json:"run_id,omitempty"`
	Video      string `json:"video"`
	Audio      string `json:"audio"`
	Checkpoint string `json:"checkpoint"`
	Output     string `json:"output"`

	DurationSec    float64 `json:"duration_sec"`
	SegmentSec     float64 `json:"segment_sec"`
	Seed           int64   `json:"seed"`
	InferenceSteps int     `json:"inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`

	CrossAttentionDim int    `json:"cross_attention_dim"`
	WhisperModel      string `json:"whisper_model"`
	NumFrames         int    `json:"num_frames"`
	Resolution        int    `json:"resolution"`

	Segments []ManifestSegment `json:"segments"`
}

type ManifestSegment struct {
	ID       string  `json:"id"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Video    string  `json:"video"`
	Audio    string  `json:"audio"`
	Output   string  `json:"output"`
	Mask     string  `json:"mask,omitempty"`
}
