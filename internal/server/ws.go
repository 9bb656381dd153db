package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/video"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow app connections from any origin
	},
}

// landmarkMessage is one reply on the landmark preview socket.
type landmarkMessage struct {
	Landmarks   [][]float64 `json:"landmarks"`
	FrameNumber int         `json:"frame_number"`
	Empty       bool        `json:"empty"`
	Timestamp   int64       `json:"timestamp"`
	Error       string      `json:"error,omitempty"`
}

// handleLandmarksSocket serves GET /ws/landmarks. The client streams
// binary JPEG frames and receives one JSON landmark grid per frame, so
// the app can draw a live skeleton overlay while recording. A text
// message "flip" toggles horizontal mirroring for the rest of the
// connection.
func (s *Server) handleLandmarksSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	s.logger.Info("landmark socket connected", zap.String("remote", conn.RemoteAddr().String()))

	flip := video.FlipTrue
	frameNumber := 0

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		if msgType == websocket.TextMessage {
			if string(data) == "flip" {
				if flip == video.FlipTrue {
					flip = video.FlipFalse
				} else {
					flip = video.FlipTrue
				}
			}
			continue
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		frameNumber++
		msg := landmarkMessage{
			FrameNumber: frameNumber,
			Timestamp:   time.Now().UnixMilli(),
		}

		frame, err := s.config.Decoder.DecodeImage(data, flip)
		if err != nil {
			msg.Error = err.Error()
		} else {
			msg.Empty = frame.IsZero()
			msg.Landmarks = frameToGrid(frame)
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}

	s.logger.Info("landmark socket closed",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Int("frames", frameNumber))
	return nil
}
