package segments

import (
	"testing"
	"time"
)

func TestCount_Table(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		segment  time.Duration
		want     int
	}{
		{"shorter than one segment", 3 * time.Second, 5 * time.Second, 1},
		{"exactly one segment", 5 * time.Second, 5 * time.Second, 1},
		{"exact multiple", 10 * time.Second, 5 * time.Second, 2},
		{"remainder adds one", 12500 * time.Millisecond, 5 * time.Second, 3},
		{"tiny remainder adds one", 10*time.Second + time.Millisecond, 5 * time.Second, 3},
		{"zero duration", 0, 5 * time.Second, 0},
		{"zero segment", 10 * time.Second, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.duration, tt.segment); got != tt.want {
				t.Fatalf("Count(%s, %s) = %d, want %d", tt.duration, tt.segment, got, tt.want)
			}
		})
	}
}

func TestPlan_ClampsLastSegment(t *testing.T) {
	segs, err := Plan(12500*time.Millisecond, 5*time.Second)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	wantEnds := []time.Duration{5 * time.Second, 10 * time.Second, 12500 * time.Millisecond}
	for i, s := range segs {
		if s.Index != i+1 {
			t.Fatalf("segment %d: expected index %d, got %d", i, i+1, s.Index)
		}
		if s.Start != time.Duration(i)*5*time.Second {
			t.Fatalf("segment %d: unexpected start %s", i, s.Start)
		}
		if s.End != wantEnds[i] {
			t.Fatalf("segment %d: expected end %s, got %s", i, wantEnds[i], s.End)
		}
	}
	if got := segs[2].Duration(); got != 2500*time.Millisecond {
		t.Fatalf("expected last segment duration 2.5s, got %s", got)
	}
}

func TestPlan_ShortInputSingleSegment(t *testing.T) {
	segs, err := Plan(3*time.Second, DefaultDuration)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Start != 0 || segs[0].End != 3*time.Second {
		t.Fatalf("unexpected segment bounds: %+v", segs[0])
	}
}

func TestPlan_RejectsInvalidInput(t *testing.T) {
	if _, err := Plan(0, time.Second); err == nil {
		t.Fatalf("expected error for zero duration")
	}
	if _, err := Plan(time.Second, 0); err == nil {
		t.Fatalf("expected error for zero segment duration")
	}
	if _, err := Plan(-time.Second, time.Second); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}
