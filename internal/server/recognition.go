package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/landmark"
	"github.com/signifyapp/signify-server/internal/pipeline"
	"github.com/signifyapp/signify-server/internal/video"
)

var allowedVideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// handleDetectVideoSigns answers POST /detect-video-signs: one clip, one
// sign, optionally recorded into a session.
func (s *Server) handleDetectVideoSigns(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Video file is required"})
	}

	sessionID := c.FormValue("session_id")
	seq := 1
	if v := c.FormValue("sequence_number"); v != "" {
		seq, err = strconv.Atoi(v)
		if err != nil || seq < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "sequence_number must be a positive integer"})
		}
	}
	isFinal := parseBool(c.FormValue("is_final"))
	debug := parseBool(c.FormValue("debug"))
	flip := parseFlip(c.FormValue("flip_camera"))

	path, cleanup, err := s.saveUpload(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer cleanup()

	result, err := s.config.Pipeline.ProcessVideo(c.Request().Context(), pipeline.VideoRequest{
		Path:           path,
		SessionID:      sessionID,
		SequenceNumber: seq,
		IsFinal:        isFinal,
		Debug:          debug,
		Flip:           flip,
	})
	if err != nil {
		s.logger.Error("video processing failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	resp := detectVideoResponse{
		Word:            result.Prediction.Word,
		Confidence:      result.Prediction.Confidence,
		PredictedIndex:  result.Prediction.ClassIndex,
		FramesProcessed: result.FramesProcessed,
		VideoDuration:   result.Stats.DurationSeconds,
		DebugInfo:       result.Debug,
	}

	if view := result.Session; view != nil {
		resp.SessionID = view.SessionID
		resp.SequenceNumber = seq
		resp.IsFinal = &isFinal
		resp.TotalSigns = view.TotalSigns
		resp.OverallConfidence = view.OverallConfidence
		if isFinal {
			resp.CompleteSequence = view.Signs
			resp.CompleteSentence = view.ComposedSentence
			if resp.CompleteSentence == "" {
				resp.CompleteSentence = view.Sentence
			}
		} else {
			resp.SignsSoFar = view.TotalSigns
			resp.CurrentSequence = view.Signs
			resp.PartialSentence = view.Sentence
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// handleDetectMultipleSigns answers POST /detect-multiple-signs: one
// continuous clip segmented into discrete signs.
func (s *Server) handleDetectMultipleSigns(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Video file is required"})
	}

	flip := parseFlip(c.FormValue("flip_camera"))

	path, cleanup, err := s.saveUpload(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer cleanup()

	result, err := s.config.Pipeline.ProcessMultiSign(c.Request().Context(), path, flip)
	if err != nil {
		s.logger.Error("multi-sign processing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	words := result.Words
	if words == nil {
		words = []string{}
	}
	segments := result.Segments
	if segments == nil {
		segments = []pipeline.SegmentResult{}
	}

	return c.JSON(http.StatusOK, detectMultipleResponse{
		Words:                words,
		Sentence:             result.Sentence,
		Segments:             segments,
		TotalSegments:        len(segments),
		TotalFramesProcessed: result.Stats.FramesExtracted,
		VideoDuration:        result.Stats.DurationSeconds,
	})
}

// handleDetectLandmarks answers POST /detect-landmarks: extract the
// landmark grid from one image frame, mainly a debugging aid.
func (s *Server) handleDetectLandmarks(c echo.Context) error {
	file, err := c.FormFile("frame")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Image frame is required"})
	}

	data, err := readUpload(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	frame, err := s.config.Decoder.DecodeImage(data, parseFlip(c.FormValue("flip_camera")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Failed to process image: %v", err)})
	}

	return c.JSON(http.StatusOK, detectLandmarksResponse{
		Landmarks: frameToGrid(frame),
		Shape:     []int{landmark.TotalLandmarks, 3},
		Message:   "Landmarks extracted successfully",
	})
}

// handlePredictSign answers POST /predict-sign: classify an
// already-extracted landmark sequence without any video decode.
func (s *Server) handlePredictSign(c echo.Context) error {
	var req predictSignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}
	if len(req.Landmarks) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Landmarks are required"})
	}

	seq, err := gridToSequence(req.Landmarks)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	pred, err := s.config.Pipeline.PredictSequence(c.Request().Context(), seq)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, predictSignResponse{
		Word:            pred.Word,
		Confidence:      pred.Confidence,
		PredictedIndex:  pred.ClassIndex,
		FramesProcessed: len(seq),
	})
}

// handleDebugVideoLandmarks answers POST /debug-video-landmarks with a
// per-frame extraction analysis of the uploaded clip.
func (s *Server) handleDebugVideoLandmarks(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Video file is required"})
	}

	maxFrames := 0
	if v := c.FormValue("max_frames"); v != "" {
		maxFrames, err = strconv.Atoi(v)
		if err != nil || maxFrames < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "max_frames must be a positive integer"})
		}
	}
	includeRaw := parseBool(c.FormValue("include_raw_landmarks"))

	path, cleanup, err := s.saveUpload(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	defer cleanup()

	seq, infos, stats, err := s.config.Decoder.Decode(path, parseFlip(c.FormValue("flip_camera")), maxFrames)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	detected := 0
	for _, info := range infos {
		if info.LandmarksDetected {
			detected++
		}
	}

	resp := debugVideoResponse{
		VideoInfo:       stats,
		FrameDetails:    infos,
		ModelWindow:     s.config.Classifier.Window(),
		TotalLandmarks:  landmark.TotalLandmarks,
		FramesWithMarks: detected,
		Message:         fmt.Sprintf("Analyzed %d frames, %d with landmarks", len(infos), detected),
	}
	if includeRaw {
		resp.RawLandmarks = make([][][]float64, len(seq))
		for i := range seq {
			resp.RawLandmarks[i] = frameToGrid(seq[i])
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// saveUpload writes a multipart upload to a temp file and returns its
// path together with a cleanup func. The cleanup must run on every exit
// path so failed jobs do not leak decoded videos.
func (s *Server) saveUpload(file *multipart.FileHeader) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedVideoExtensions[ext] {
		return "", nil, fmt.Errorf("unsupported video format %q, use MP4, MOV, AVI, MKV or WEBM", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "signify_upload_*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		dst.Close()
		if err := os.Remove(dst.Name()); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove temp video", zap.String("path", dst.Name()), zap.Error(err))
		}
	}

	if _, err := io.Copy(dst, src); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save upload: %w", err)
	}

	return dst.Name(), cleanup, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}
	return data, nil
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func parseFlip(v string) video.Flip {
	switch strings.ToLower(v) {
	case "true":
		return video.FlipTrue
	case "false":
		return video.FlipFalse
	default:
		return video.FlipAuto
	}
}

func frameToGrid(frame landmark.Frame) [][]float64 {
	grid := make([][]float64, landmark.TotalLandmarks)
	for i, p := range frame {
		grid[i] = []float64{p.X, p.Y, p.Z}
	}
	return grid
}

func gridToSequence(grids [][][]float64) (landmark.Sequence, error) {
	seq := make(landmark.Sequence, len(grids))
	for f, grid := range grids {
		if len(grid) != landmark.TotalLandmarks {
			return nil, fmt.Errorf("frame %d has %d landmarks, expected %d", f, len(grid), landmark.TotalLandmarks)
		}
		for i, p := range grid {
			if len(p) != 3 {
				return nil, fmt.Errorf("frame %d landmark %d has %d coordinates, expected 3", f, i, len(p))
			}
			seq[f][i] = landmark.Point3D{X: p[0], Y: p[1], Z: p[2]}
		}
	}
	return seq, nil
}
