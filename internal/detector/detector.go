// Package detector provides keypoint detection over video frames: hands,
// upper-body pose and face mesh, plus the extractor that assembles the
// model-ready landmark frame.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// Hand represents one detected hand: 21 points plus the handedness label
// assigned by the detector's own classifier.
type Hand struct {
	Points     [landmark.HandNum]landmark.Point3D `json:"points"`
	Handedness string                             `json:"handedness"` // "Left" or "Right"
	Score      float64                            `json:"score"`
}

// Result holds the raw keypoints detected in a single frame. A nil or
// empty slice means the corresponding body part was not found; that is an
// expected, frequent condition and not an error.
type Result struct {
	Hands []Hand             `json:"hands"`
	Pose  []landmark.Point3D `json:"pose"` // full body-pose point set
	Face  []landmark.Point3D `json:"face"` // full face-mesh point set
}

// Detector defines the interface for keypoint detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected keypoints.
	// Parts that were not found are left empty in the Result.
	Detect(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for keypoint detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
