// Package landmark defines the fixed 100-point landmark layout shared by
// the detector, the segmenter and the classifier, plus the temporal
// buffering that fits a recorded sequence to the model window.
package landmark

// Layout of one frame: both hands, a reduced upper-body pose and a
// reduced face mesh, packed into a fixed grid so every frame flattens to
// the same tensor shape.
const (
	// HandNum is the number of keypoints per hand.
	HandNum = 21
	// PoseNum is the number of upper-body pose keypoints kept.
	PoseNum = 6
	// FaceNum is the number of face-mesh keypoints kept.
	FaceNum = 52

	LeftHandStart  = 0
	RightHandStart = LeftHandStart + HandNum
	PoseStart      = RightHandStart + HandNum
	FaceStart      = PoseStart + PoseNum

	// TotalLandmarks is the full grid size: 2*HandNum + PoseNum + FaceNum.
	TotalLandmarks = 100

	// MaxFrames is the temporal window of the classifier model.
	MaxFrames = 143
)

// PoseIndices selects the upper-body points (shoulders, elbows, wrists)
// from the full 33-point pose output.
var PoseIndices = []int{11, 12, 13, 14, 15, 16}

// FaceIndices selects expressive points (brows, eyes, lips, nose
// contour, irises) from the full 478-point face mesh.
var FaceIndices = []int{
	4, 6, 8, 9, 33, 37, 40, 46, 52, 55,
	61, 70, 80, 82, 84, 87, 88, 91, 105, 107,
	133, 145, 154, 157, 159, 161, 163, 263, 267, 270,
	276, 282, 285, 291, 300, 310, 312, 314, 317, 318,
	321, 334, 336, 362, 374, 381, 384, 386, 388, 390,
	468, 473,
}

// Point3D is one normalized landmark coordinate.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Frame is the landmark grid for a single video frame.
type Frame [TotalLandmarks]Point3D

// Sequence is an ordered run of frames from one clip or recording.
type Sequence []Frame

// IsZero reports whether no landmark in the frame was detected.
func (f *Frame) IsZero() bool {
	for i := range f {
		if f[i].X != 0 || f[i].Y != 0 || f[i].Z != 0 {
			return false
		}
	}
	return true
}

// Flatten returns the frame as a flat [TotalLandmarks*3]float32 slice in
// x, y, z order per point.
func (f *Frame) Flatten() []float32 {
	out := make([]float32, 0, TotalLandmarks*3)
	for i := range f {
		out = append(out, float32(f[i].X), float32(f[i].Y), float32(f[i].Z))
	}
	return out
}

// MeanAbsDiff returns the mean absolute coordinate difference between
// two frames, the motion measure used by segmentation.
func MeanAbsDiff(a, b *Frame) float64 {
	var sum float64
	for i := range a {
		sum += abs(a[i].X-b[i].X) + abs(a[i].Y-b[i].Y) + abs(a[i].Z-b[i].Z)
	}
	return sum / float64(TotalLandmarks*3)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
