// Package server provides the HTTP API for the SignIfy recognition
// backend.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/classify"
	"github.com/signifyapp/signify-server/internal/pipeline"
	"github.com/signifyapp/signify-server/internal/session"
	"github.com/signifyapp/signify-server/internal/store"
	"github.com/signifyapp/signify-server/internal/video"
)

// Config holds the server's collaborators.
type Config struct {
	Pipeline    *pipeline.Service
	Sessions    session.Store
	Decoder     *video.Decoder
	Classifier  *classify.Classifier
	Archive     *store.Store
	MaxUploadMB int
	Logger      *zap.Logger
}

// Server is the HTTP server for the recognition backend.
type Server struct {
	config Config
	echo   *echo.Echo
	logger *zap.Logger
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if config.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", config.MaxUploadMB)))
	}

	s := &Server{
		config: config,
		echo:   e,
		logger: config.Logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	e := s.echo

	e.GET("/health", s.handleHealth)

	// Recognition
	e.POST("/detect-video-signs", s.handleDetectVideoSigns)
	e.POST("/detect-multiple-signs", s.handleDetectMultipleSigns)
	e.POST("/detect-landmarks", s.handleDetectLandmarks)
	e.POST("/predict-sign", s.handlePredictSign)
	e.POST("/debug-video-landmarks", s.handleDebugVideoLandmarks)

	// Sessions
	e.GET("/session-info/:session_id", s.handleSessionInfo)
	e.DELETE("/remove-last-word-from-session/:session_id", s.handleRemoveLastWord)
	e.DELETE("/remove-word-from-session/:session_id/:sequence_number", s.handleRemoveWord)
	e.DELETE("/clear-session/:session_id", s.handleClearSession)
	e.POST("/regenerate-sentence/:session_id", s.handleRegenerateSentence)
	e.GET("/list-sessions", s.handleListSessions)

	// Archive
	if s.config.Archive != nil {
		e.GET("/history", s.handleHistory)
	}

	// Live landmark preview
	if s.config.Decoder != nil {
		e.GET("/ws/landmarks", s.handleLandmarksSocket)
	}
}

// Echo exposes the underlying echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHealth answers GET /health with server and model status.
func (s *Server) handleHealth(c echo.Context) error {
	modelStatus := classify.StateUnloaded.String()
	if s.config.Classifier != nil {
		modelStatus = s.config.Classifier.State().String()
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:         "ok",
		Server:         "signify-server",
		ModelStatus:    modelStatus,
		ActiveSessions: s.config.Sessions.Count(),
		Uptime:         time.Since(s.start).String(),
	})
}

// Start begins serving on the given address, blocking until shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
