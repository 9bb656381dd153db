package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// Extractor turns a decoded frame into the fixed-shape landmark frame the
// classifier expects. It writes each detected part into its block of the
// output and leaves absent parts at zero.
type Extractor struct {
	detector Detector
}

// NewExtractor creates an Extractor over the given keypoint detector.
func NewExtractor(d Detector) *Extractor {
	return &Extractor{detector: d}
}

// Extract runs detection on one frame and assembles a landmark.Frame.
//
// Blocks of undetected parts stay zero; that is the trained-in
// "absence = zero vector" policy, not an error. A non-nil error means the
// detector itself failed and the caller should skip the frame, not abort
// the clip.
func (e *Extractor) Extract(frame *gocv.Mat) (landmark.Frame, error) {
	var out landmark.Frame

	result, err := e.detector.Detect(frame)
	if err != nil {
		return out, fmt.Errorf("detect keypoints: %w", err)
	}

	FillFrame(&out, result)
	return out, nil
}

// FillFrame writes the detected keypoints from result into the block
// layout of frame. Hands land in their handedness block, pose and face
// points are filtered down to the trained index subsets.
func FillFrame(frame *landmark.Frame, result *Result) {
	if result == nil {
		return
	}

	for _, hand := range result.Hands {
		start := landmark.LeftHandStart
		if hand.Handedness == "Right" {
			start = landmark.RightHandStart
		}
		for i := 0; i < landmark.HandNum; i++ {
			frame[start+i] = hand.Points[i]
		}
	}

	if len(result.Pose) > 0 {
		for i, src := range landmark.PoseIndices {
			if src < len(result.Pose) {
				frame[landmark.PoseStart+i] = result.Pose[src]
			}
		}
	}

	if len(result.Face) > 0 {
		for i, src := range landmark.FaceIndices {
			if src < len(result.Face) {
				frame[landmark.FaceStart+i] = result.Face[src]
			}
		}
	}
}

// Close releases the underlying detector.
func (e *Extractor) Close() error {
	return e.detector.Close()
}
