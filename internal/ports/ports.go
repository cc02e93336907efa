package ports

import (
	"context"
	"time"

	"github.com/forPelevin/lipsync/internal/types"
)

type VideoTool interface {
	ProbeVideoDuration(ctx context.Context, inMP4 string) (time.Duration, error)
	CutVideo(ctx context.Context, inMP4, outMP4 string, start, end time.Duration) error
	CutAudio(ctx context.Context, inAudio, outMP3 string, start, end time.Duration) error
	Concat(ctx context.Context, inputs []string, outMP4 string) error
}

// Lipsyncer runs the external lip-sync diffusion pipeline on one segment.
type Lipsyncer interface {
	Process(ctx context.Context, job types.SegmentJob) error
}
