// Package pipeline orchestrates the recognition flow: decode a video into
// landmarks, segment it when needed, classify each segment and accumulate
// the result into the recording session.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/classify"
	"github.com/signifyapp/signify-server/internal/compose"
	"github.com/signifyapp/signify-server/internal/landmark"
	"github.com/signifyapp/signify-server/internal/segment"
	"github.com/signifyapp/signify-server/internal/session"
	"github.com/signifyapp/signify-server/internal/store"
	"github.com/signifyapp/signify-server/internal/video"
)

// Service runs recognition jobs. Detector models and the classifier are
// constructed once per process; video jobs are bounded by a worker
// semaphore because decode and inference dominate latency.
type Service struct {
	decoder    *video.Decoder
	segmenter  *segment.Detector
	classifier *classify.Classifier
	sessions   session.Store
	composer   *compose.Service
	archive    *store.Store
	logger     *zap.Logger
	workers    chan struct{}
}

// New creates a Service. workers <= 0 sizes the pool to NumCPU. archive
// may be nil to disable the finalized-session history.
func New(
	decoder *video.Decoder,
	segmenter *segment.Detector,
	classifier *classify.Classifier,
	sessions session.Store,
	composer *compose.Service,
	archive *store.Store,
	workers int,
	logger *zap.Logger,
) *Service {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Service{
		decoder:    decoder,
		segmenter:  segmenter,
		classifier: classifier,
		sessions:   sessions,
		composer:   composer,
		archive:    archive,
		logger:     logger,
		workers:    make(chan struct{}, workers),
	}
}

// VideoRequest describes one uploaded clip.
type VideoRequest struct {
	Path           string
	SessionID      string
	SequenceNumber int
	IsFinal        bool
	Debug          bool
	Flip           video.Flip
}

// VideoResult is the outcome of a single-sign video job.
type VideoResult struct {
	Prediction      classify.Prediction
	FramesProcessed int
	Stats           video.Stats
	Debug           []video.FrameInfo
	Session         *session.View
}

// ProcessVideo decodes one clip, classifies it as a single sign and, when
// a session id is supplied, records it in the session.
func (s *Service) ProcessVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	seq, infos, stats, err := s.decoder.Decode(req.Path, req.Flip, 0)
	if err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("no landmarks could be extracted from video")
	}

	pred, err := s.classifier.Predict(ctx, seq)
	if err != nil {
		return nil, fmt.Errorf("classify video: %w", err)
	}

	result := &VideoResult{
		Prediction:      pred,
		FramesProcessed: len(seq),
		Stats:           stats,
	}
	if req.Debug {
		result.Debug = infos
	}

	if req.SessionID != "" {
		view, err := s.sessions.Upsert(ctx, req.SessionID, req.SequenceNumber, pred, req.IsFinal)
		if err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}
		result.Session = &view

		if req.IsFinal {
			s.archiveSession(view)
		}
	}

	s.logger.Info("video processed",
		zap.String("session_id", req.SessionID),
		zap.String("word", pred.Word),
		zap.Float64("confidence", pred.Confidence),
		zap.Int("frames", len(seq)))

	return result, nil
}

// SegmentResult is one recognized segment of a multi-sign clip.
type SegmentResult struct {
	SegmentID  int     `json:"segment_id"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
	FrameCount int     `json:"frame_count"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
}

// MultiSignResult is the outcome of a multi-sign video job.
type MultiSignResult struct {
	Words    []string
	Sentence string
	Segments []SegmentResult
	Stats    video.Stats
}

// ProcessMultiSign decodes a clip without pre-truncation, splits it into
// sign segments and classifies each one.
func (s *Service) ProcessMultiSign(ctx context.Context, path string, flip video.Flip) (*MultiSignResult, error) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	// Segmentation needs the whole clip, so decode well past the model
	// window; each segment is fitted individually afterwards.
	seq, _, stats, err := s.decoder.Decode(path, flip, landmark.MaxFrames*10)
	if err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}

	segments := s.segmenter.Detect(seq)

	result := &MultiSignResult{Stats: stats}
	for i, seg := range segments {
		pred, err := s.classifier.Predict(ctx, seg.Frames)
		if err != nil {
			return nil, fmt.Errorf("classify segment %d: %w", i+1, err)
		}

		result.Segments = append(result.Segments, SegmentResult{
			SegmentID:  i + 1,
			Word:       pred.Word,
			Confidence: pred.Confidence,
			FrameCount: len(seg.Frames),
			StartFrame: seg.Start,
			EndFrame:   seg.End,
		})
		if pred.Word != classify.PlaceholderWord {
			result.Words = append(result.Words, pred.Word)
		}
	}

	result.Sentence = s.composer.Compose(ctx, result.Words)

	s.logger.Info("multi-sign video processed",
		zap.Int("segments", len(segments)),
		zap.Strings("words", result.Words))

	return result, nil
}

// PredictSequence classifies an already-extracted landmark sequence.
func (s *Service) PredictSequence(ctx context.Context, seq landmark.Sequence) (classify.Prediction, error) {
	return s.classifier.Predict(ctx, seq)
}

// archiveSession writes a finalized session to the SQLite archive.
// Archive failures are logged, never surfaced: the recognition result is
// already committed to the live session.
func (s *Service) archiveSession(view session.View) {
	if s.archive == nil {
		return
	}

	completedAt := time.Now().UTC()
	if view.CompletedAt != nil {
		completedAt = *view.CompletedAt
	}

	rec := &store.Recording{
		ID:                uuid.New().String(),
		SessionID:         view.SessionID,
		Sentence:          view.Sentence,
		ComposedSentence:  view.ComposedSentence,
		Words:             view.Words,
		TotalSigns:        view.TotalSigns,
		OverallConfidence: view.OverallConfidence,
		CompletedAt:       completedAt,
	}

	if err := s.archive.Recordings().Create(rec); err != nil {
		s.logger.Error("failed to archive finalized session",
			zap.String("session_id", view.SessionID),
			zap.Error(err))
	}
}
