// Package video decodes uploaded video containers into landmark
// sequences using GoCV (OpenCV) and the keypoint extractor.
package video

import (
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/signifyapp/signify-server/internal/detector"
	"github.com/signifyapp/signify-server/internal/landmark"
)

// Flip selects whether frames are mirrored horizontally before
// extraction. Front-camera uploads arrive mirrored, so Auto flips them.
type Flip string

const (
	FlipAuto  Flip = "auto"
	FlipTrue  Flip = "true"
	FlipFalse Flip = "false"
)

// FrameInfo records per-frame extraction results for debug responses.
type FrameInfo struct {
	Index             int  `json:"frame_index"`
	LandmarksDetected bool `json:"landmarks_detected"`
	ExtractionFailed  bool `json:"extraction_failed"`
}

// Stats summarizes one decode run.
type Stats struct {
	FramesRead      int     `json:"frames_read"`
	FramesExtracted int     `json:"frames_extracted"`
	FramesFailed    int     `json:"frames_failed"`
	FPS             float64 `json:"fps"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Decoder turns a video file into a landmark sequence.
type Decoder struct {
	extractor *detector.Extractor
	maxFrames int
	logger    *zap.Logger
}

// NewDecoder creates a Decoder. maxFrames bounds memory use per clip;
// values <= 0 fall back to landmark.MaxFrames.
func NewDecoder(extractor *detector.Extractor, maxFrames int, logger *zap.Logger) *Decoder {
	if maxFrames <= 0 {
		maxFrames = landmark.MaxFrames
	}
	return &Decoder{
		extractor: extractor,
		maxFrames: maxFrames,
		logger:    logger,
	}
}

// Decode reads up to maxFrames frames from the file at path and extracts
// landmarks from each. A frame whose extraction fails is skipped rather
// than aborting the clip; frames where nothing was detected still yield a
// zero frame, matching the training pipeline.
func (d *Decoder) Decode(path string, flip Flip, maxFrames int) (landmark.Sequence, []FrameInfo, Stats, error) {
	if maxFrames <= 0 {
		maxFrames = d.maxFrames
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, nil, Stats{}, fmt.Errorf("open video: %w", err)
	}
	defer capture.Close()

	stats := Stats{FPS: capture.Get(gocv.VideoCaptureFPS)}
	totalFrames := capture.Get(gocv.VideoCaptureFrameCount)
	if stats.FPS > 0 && totalFrames > 0 {
		stats.DurationSeconds = totalFrames / stats.FPS
	}

	mirror := flip == FlipTrue || flip == FlipAuto

	frame := gocv.NewMat()
	defer frame.Close()

	var seq landmark.Sequence
	var infos []FrameInfo

	for len(seq) < maxFrames {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		stats.FramesRead++

		if mirror {
			gocv.Flip(frame, &frame, 1)
		}

		lf, err := d.extractor.Extract(&frame)
		if err != nil {
			stats.FramesFailed++
			infos = append(infos, FrameInfo{Index: stats.FramesRead - 1, ExtractionFailed: true})
			d.logger.Debug("frame extraction failed, skipping",
				zap.Int("frame", stats.FramesRead-1),
				zap.Error(err))
			continue
		}

		seq = append(seq, lf)
		infos = append(infos, FrameInfo{
			Index:             stats.FramesRead - 1,
			LandmarksDetected: !lf.IsZero(),
		})
	}

	stats.FramesExtracted = len(seq)
	if stats.FramesRead == 0 {
		return nil, nil, stats, fmt.Errorf("no frames could be decoded from video")
	}

	return seq, infos, stats, nil
}

// DecodeImage extracts landmarks from a single encoded image (JPEG/PNG).
func (d *Decoder) DecodeImage(data []byte, flip Flip) (landmark.Frame, error) {
	var zero landmark.Frame

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return zero, fmt.Errorf("decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return zero, fmt.Errorf("decode image: empty frame")
	}

	if flip == FlipTrue || flip == FlipAuto {
		gocv.Flip(mat, &mat, 1)
	}

	return d.extractor.Extract(&mat)
}
