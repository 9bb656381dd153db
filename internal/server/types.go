package server

import (
	"github.com/signifyapp/signify-server/internal/pipeline"
	"github.com/signifyapp/signify-server/internal/session"
	"github.com/signifyapp/signify-server/internal/video"
)

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Server         string `json:"server"`
	ModelStatus    string `json:"model_status"`
	ActiveSessions int    `json:"active_sessions"`
	Uptime         string `json:"uptime"`
}

// detectVideoResponse answers POST /detect-video-signs. The session
// block is only present when the request carried a session id.
type detectVideoResponse struct {
	Word            string            `json:"word"`
	Confidence      float64           `json:"confidence"`
	PredictedIndex  int               `json:"predicted_index"`
	FramesProcessed int               `json:"frames_processed"`
	VideoDuration   float64           `json:"video_duration"`
	DebugInfo       []video.FrameInfo `json:"debug_info,omitempty"`

	SessionID         string          `json:"session_id,omitempty"`
	SequenceNumber    int             `json:"sequence_number,omitempty"`
	IsFinal           *bool           `json:"is_final,omitempty"`
	SignsSoFar        int             `json:"signs_so_far,omitempty"`
	TotalSigns        int             `json:"total_signs,omitempty"`
	OverallConfidence float64         `json:"overall_confidence,omitempty"`
	CurrentSequence   []session.Entry `json:"current_sequence,omitempty"`
	CompleteSequence  []session.Entry `json:"complete_sequence,omitempty"`
	PartialSentence   string          `json:"partial_sentence,omitempty"`
	CompleteSentence  string          `json:"complete_sentence,omitempty"`
}

// detectMultipleResponse answers POST /detect-multiple-signs.
type detectMultipleResponse struct {
	Words                []string                 `json:"words"`
	Sentence             string                   `json:"sentence"`
	Segments             []pipeline.SegmentResult `json:"segments"`
	TotalSegments        int                      `json:"total_segments"`
	TotalFramesProcessed int                      `json:"total_frames_processed"`
	VideoDuration        float64                  `json:"video_duration"`
}

// predictSignRequest carries an already-extracted landmark sequence:
// frames of 100 points of [x, y, z].
type predictSignRequest struct {
	Landmarks [][][]float64 `json:"landmarks"`
}

type predictSignResponse struct {
	Word            string  `json:"word"`
	Confidence      float64 `json:"confidence"`
	PredictedIndex  int     `json:"predicted_index"`
	FramesProcessed int     `json:"frames_processed"`
}

// detectLandmarksResponse answers the single-frame debug endpoint.
type detectLandmarksResponse struct {
	Landmarks [][]float64 `json:"landmarks"`
	Shape     []int       `json:"shape"`
	Message   string      `json:"message"`
}

type debugVideoResponse struct {
	VideoInfo       video.Stats       `json:"video_info"`
	FrameDetails    []video.FrameInfo `json:"frame_details"`
	RawLandmarks    [][][]float64     `json:"raw_landmarks,omitempty"`
	ModelWindow     int               `json:"model_window"`
	TotalLandmarks  int               `json:"total_landmarks"`
	Message         string            `json:"message"`
	FramesWithMarks int               `json:"frames_with_landmarks"`
}

type removeWordResponse struct {
	session.View
	RemovedWord string `json:"removed_word"`
}

type regenerateResponse struct {
	SessionID string   `json:"session_id"`
	Sentence  string   `json:"sentence"`
	Words     []string `json:"words"`
}

type listSessionsResponse struct {
	ActiveSessions int                        `json:"active_sessions"`
	Sessions       map[string]session.Summary `json:"sessions"`
}

type historyEntry struct {
	ID                string   `json:"id"`
	SessionID         string   `json:"session_id"`
	Sentence          string   `json:"sentence"`
	ComposedSentence  string   `json:"composed_sentence,omitempty"`
	Words             []string `json:"words"`
	TotalSigns        int      `json:"total_signs"`
	OverallConfidence float64  `json:"overall_confidence"`
	CompletedAt       string   `json:"completed_at"`
}

type historyResponse struct {
	Recordings []historyEntry `json:"recordings"`
	Total      int            `json:"total"`
}
