package detector

import (
	"gocv.io/x/gocv"

	"github.com/signifyapp/signify-server/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	result *Result
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{result: &Result{}}
}

// SetResult sets the detection result that will be returned by Detect.
func (m *MockDetector) SetResult(r *Result) {
	m.result = r
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// RaisedHand returns a preset Hand with all points clustered around the
// upper half of the image, tagged with the given handedness.
func RaisedHand(handedness string) Hand {
	hand := Hand{
		Handedness: handedness,
		Score:      0.95,
	}

	// Wrist at the bottom of the hand, fingers fanned out above it.
	hand.Points[0] = landmark.Point3D{X: 0.5, Y: 0.6, Z: 0.0}
	for i := 1; i < landmark.HandNum; i++ {
		finger := (i - 1) / 4
		joint := (i - 1) % 4
		hand.Points[i] = landmark.Point3D{
			X: 0.40 + 0.05*float64(finger),
			Y: 0.55 - 0.05*float64(joint),
			Z: -0.01 * float64(joint),
		}
	}

	return hand
}

// UpperBodyPose returns a full body-pose point set with plausible values
// for the shoulder/elbow/wrist indices the extractor selects.
func UpperBodyPose() []landmark.Point3D {
	points := make([]landmark.Point3D, 33)
	for i := range points {
		points[i] = landmark.Point3D{X: 0.5, Y: 0.3, Z: 0.0}
	}
	points[11] = landmark.Point3D{X: 0.35, Y: 0.35, Z: 0.0} // left shoulder
	points[12] = landmark.Point3D{X: 0.65, Y: 0.35, Z: 0.0} // right shoulder
	points[13] = landmark.Point3D{X: 0.30, Y: 0.50, Z: 0.0} // left elbow
	points[14] = landmark.Point3D{X: 0.70, Y: 0.50, Z: 0.0} // right elbow
	points[15] = landmark.Point3D{X: 0.32, Y: 0.62, Z: 0.0} // left wrist
	points[16] = landmark.Point3D{X: 0.68, Y: 0.62, Z: 0.0} // right wrist
	return points
}

// NeutralFace returns a full face-mesh point set where every point sits at
// a fixed offset, enough for the extractor's index selection to be tested.
func NeutralFace() []landmark.Point3D {
	points := make([]landmark.Point3D, 478)
	for i := range points {
		points[i] = landmark.Point3D{
			X: 0.5 + 0.0001*float64(i),
			Y: 0.2 + 0.0001*float64(i),
			Z: 0.0,
		}
	}
	return points
}
