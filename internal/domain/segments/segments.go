package segments

import (
	"errors"
	"time"

	"github.com/forPelevin/lipsync/internal/types"
)

// DefaultDuration is the clip length the lip-sync pipeline is run on.
const DefaultDuration = 5 * time.Second

// Count returns how many fixed-length segments cover duration.
// A media shorter than (or equal to) one segment yields exactly one.
func Count(duration, segment time.Duration) int {
	if duration <= 0 || segment <= 0 {
		return 0
	}
	if duration <= segment {
		return 1
	}
	n := int(duration / segment)
	if duration%segment != 0 {
		n++
	}
	return n
}

// Plan splits [0, duration) into consecutive segments of the given length.
// The last segment is clamped to duration.
func Plan(duration, segment time.Duration) ([]types.Segment, error) {
	if duration <= 0 {
		return nil, errors.New("duration must be > 0")
	}
	if segment <= 0 {
		return nil, errors.New("segment duration must be > 0")
	}

	n := Count(duration, segment)
	out := make([]types.Segment, 0, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * segment
		end := min(start+segment, duration)
		out = append(out, types.Segment{
			Index: i + 1,
			Start: start,
			End:   end,
		})
	}
	return out, nil
}
