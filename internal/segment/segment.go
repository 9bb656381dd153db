// Package segment splits a continuous landmark sequence into discrete sign
// segments by detecting motion and pause transitions.
package segment

import "github.com/signifyapp/signify-server/internal/landmark"

// Config holds the motion-detection parameters. The defaults are the
// empirical values the recognition model was tuned against; they do not
// necessarily generalize to other camera setups without re-tuning.
type Config struct {
	// WindowSize is how many frames back to look when measuring motion.
	WindowSize int `yaml:"window_size"`

	// MotionThreshold is the mean absolute landmark displacement (in
	// normalized units) above which a frame counts as "in motion".
	MotionThreshold float64 `yaml:"motion_threshold"`

	// MinSignFrames is the minimum segment length to count as a real
	// sign; shorter runs are discarded as noise.
	MinSignFrames int `yaml:"min_sign_frames"`

	// MaxPauseFrames is how many consecutive pause frames close the
	// current segment.
	MaxPauseFrames int `yaml:"max_pause_frames"`
}

// DefaultConfig returns the tuned default parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize:      5,
		MotionThreshold: 0.02,
		MinSignFrames:   10,
		MaxPauseFrames:  15,
	}
}

// Segment is a contiguous run of frames believed to contain one sign.
type Segment struct {
	Start  int
	End    int // exclusive
	Frames landmark.Sequence
}

// Detector segments landmark sequences using motion flagging.
type Detector struct {
	config Config
}

// NewDetector creates a Detector with the given configuration. Zero or
// negative fields fall back to their defaults.
func NewDetector(config Config) *Detector {
	def := DefaultConfig()
	if config.WindowSize <= 0 {
		config.WindowSize = def.WindowSize
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = def.MotionThreshold
	}
	if config.MinSignFrames <= 0 {
		config.MinSignFrames = def.MinSignFrames
	}
	if config.MaxPauseFrames <= 0 {
		config.MaxPauseFrames = def.MaxPauseFrames
	}
	return &Detector{config: config}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.config
}

// motionFlags flags each frame as motion (true) or pause (false) by
// comparing it against the frame WindowSize positions earlier. The first
// WindowSize frames have no history and are unconditionally motion.
func (d *Detector) motionFlags(seq landmark.Sequence) []bool {
	flags := make([]bool, len(seq))
	for i := range seq {
		if i < d.config.WindowSize {
			flags[i] = true
			continue
		}
		diff := landmark.MeanAbsDiff(&seq[i], &seq[i-d.config.WindowSize])
		flags[i] = diff > d.config.MotionThreshold
	}
	return flags
}

// Detect walks the sequence and returns the sign segments found in it.
//
// A segment can only begin on a motion frame; stillness between signs is
// skipped entirely. While frames are flagged as motion the segment keeps
// growing and the pause counter resets. Pause frames inside a building
// segment increment the counter but are still appended, so brief holds
// within a sign are not lost; only once the segment has at least
// MinSignFrames and the counter reaches MaxPauseFrames is it closed. A
// trailing segment shorter than MinSignFrames is discarded as noise.
func (d *Detector) Detect(seq landmark.Sequence) []Segment {
	if len(seq) == 0 {
		return nil
	}

	flags := d.motionFlags(seq)

	var segments []Segment
	start := 0
	length := 0
	pauseCount := 0

	flush := func(end int) {
		if length >= d.config.MinSignFrames {
			frames := make(landmark.Sequence, end-start)
			copy(frames, seq[start:end])
			segments = append(segments, Segment{Start: start, End: end, Frames: frames})
		}
	}

	for i := range seq {
		if flags[i] {
			if length == 0 {
				start = i
			}
			pauseCount = 0
			length++
			continue
		}

		// Pause frames outside a segment are inter-sign stillness, not
		// the start of a new segment.
		if length == 0 {
			continue
		}

		pauseCount++
		length++
		if length >= d.config.MinSignFrames && pauseCount >= d.config.MaxPauseFrames {
			flush(i + 1)
			length = 0
			pauseCount = 0
		}
	}

	flush(len(seq))
	return segments
}
