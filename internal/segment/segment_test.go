package segment

import (
	"testing"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// motionSequence builds a sequence where each frame in a "moving" region
// drifts far enough from the frame WindowSize earlier to count as motion,
// and "still" regions repeat the same pose.
func motionSequence(pattern []bool) landmark.Sequence {
	seq := make(landmark.Sequence, len(pattern))
	x := 0.0
	for i, moving := range pattern {
		if moving {
			x += 0.1
		}
		for j := range seq[i] {
			seq[i][j] = landmark.Point3D{X: x, Y: x, Z: 0}
		}
	}
	return seq
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectEmptySequence(t *testing.T) {
	d := NewDetector(DefaultConfig())
	if got := d.Detect(nil); got != nil {
		t.Errorf("Detect(nil) = %v, want nil", got)
	}
}

func TestDetectShortSequenceDiscarded(t *testing.T) {
	d := NewDetector(DefaultConfig())
	seq := motionSequence(repeat(true, 5))
	if got := d.Detect(seq); len(got) != 0 {
		t.Errorf("got %d segments from a 5-frame clip, want 0", len(got))
	}
}

func TestDetectContinuousMotionSingleSegment(t *testing.T) {
	d := NewDetector(DefaultConfig())
	seq := motionSequence(repeat(true, 60))

	segments := d.Detect(seq)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 60 {
		t.Errorf("segment spans [%d, %d), want [0, 60)", segments[0].Start, segments[0].End)
	}
	if len(segments[0].Frames) != 60 {
		t.Errorf("segment has %d frames, want 60", len(segments[0].Frames))
	}
}

func TestDetectPauseSplitsSegments(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg)

	// Two signs separated by a long hold. The pause run must exceed
	// MaxPauseFrames plus the motion window, because the first
	// WindowSize still frames after motion stops are still measured
	// against moving frames.
	var pattern []bool
	pattern = append(pattern, repeat(true, 30)...)
	pattern = append(pattern, repeat(false, 30)...)
	pattern = append(pattern, repeat(true, 30)...)
	seq := motionSequence(pattern)

	segments := d.Detect(seq)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %d, want 0", segments[0].Start)
	}
	if segments[1].End != 90 {
		t.Errorf("second segment ends at %d, want 90", segments[1].End)
	}
	if segments[1].Start < segments[0].End {
		t.Errorf("segments overlap: [%d,%d) then [%d,%d)",
			segments[0].Start, segments[0].End, segments[1].Start, segments[1].End)
	}
}

func TestDetectLongPauseBetweenSignsNoExtraSegments(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg)

	// The hold between the two signs runs well past WindowSize plus two
	// full MaxPauseFrames windows. The stillness after the first segment
	// closes must not seed new segments of its own.
	var pattern []bool
	pattern = append(pattern, repeat(true, 30)...)
	pattern = append(pattern, repeat(false, cfg.WindowSize+2*cfg.MaxPauseFrames+25)...)
	pattern = append(pattern, repeat(true, 30)...)
	seq := motionSequence(pattern)

	segments := d.Detect(seq)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %d, want 0", segments[0].Start)
	}
	if segments[1].Start != 90 {
		t.Errorf("second segment starts at %d, want 90 where motion resumes", segments[1].Start)
	}
	if segments[1].End != len(pattern) {
		t.Errorf("second segment ends at %d, want %d", segments[1].End, len(pattern))
	}
}

func TestDetectStillTailAfterSignDiscarded(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// One sign followed by a long motionless tail. The tail must produce
	// no segments, not even at the end-of-sequence flush.
	var pattern []bool
	pattern = append(pattern, repeat(true, 30)...)
	pattern = append(pattern, repeat(false, 60)...)
	seq := motionSequence(pattern)

	segments := d.Detect(seq)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 49 {
		t.Errorf("segment spans [%d, %d), want [0, 49)", segments[0].Start, segments[0].End)
	}
}

func TestDetectBriefHoldStaysInSegment(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// A 3-frame hold in the middle of a sign is shorter than
	// MaxPauseFrames and must not split the segment.
	var pattern []bool
	pattern = append(pattern, repeat(true, 20)...)
	pattern = append(pattern, repeat(false, 3)...)
	pattern = append(pattern, repeat(true, 20)...)
	seq := motionSequence(pattern)

	segments := d.Detect(seq)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if len(segments[0].Frames) != 43 {
		t.Errorf("segment has %d frames, want 43", len(segments[0].Frames))
	}
}

func TestDetectTrailingNoiseDiscarded(t *testing.T) {
	cfg := Config{WindowSize: 2, MotionThreshold: 0.02, MinSignFrames: 10, MaxPauseFrames: 5}
	d := NewDetector(cfg)

	// A real sign, a closing pause, then a flicker too short to be a
	// sign of its own.
	var pattern []bool
	pattern = append(pattern, repeat(true, 20)...)
	pattern = append(pattern, repeat(false, 10)...)
	pattern = append(pattern, repeat(true, 3)...)
	seq := motionSequence(pattern)

	segments := d.Detect(seq)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
}

func TestNewDetectorDefaults(t *testing.T) {
	d := NewDetector(Config{})
	if got := d.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults %+v", got, DefaultConfig())
	}

	d = NewDetector(Config{WindowSize: 3, MotionThreshold: 0.05, MinSignFrames: 8, MaxPauseFrames: 20})
	got := d.Config()
	if got.WindowSize != 3 || got.MotionThreshold != 0.05 || got.MinSignFrames != 8 || got.MaxPauseFrames != 20 {
		t.Errorf("explicit config not preserved: %+v", got)
	}
}
