package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/classify"
	"github.com/signifyapp/signify-server/internal/compose"
	"github.com/signifyapp/signify-server/internal/config"
	"github.com/signifyapp/signify-server/internal/detector"
	"github.com/signifyapp/signify-server/internal/pipeline"
	"github.com/signifyapp/signify-server/internal/segment"
	"github.com/signifyapp/signify-server/internal/server"
	"github.com/signifyapp/signify-server/internal/session"
	"github.com/signifyapp/signify-server/internal/store"
	"github.com/signifyapp/signify-server/internal/video"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("SIGNIFY_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Landmark detector. The MediaPipe subprocess needs a Python
	// environment; without one the server still runs, returning empty
	// frames, which keeps development machines useful.
	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinConfidence,
	})
	if err != nil {
		logger.Warn("mediapipe detector unavailable, landmarks will be empty", zap.Error(err))
		det = detector.NewMockDetector()
	} else {
		det = mp
	}
	defer det.Close()

	extractor := detector.NewExtractor(det)
	decoder := video.NewDecoder(extractor, cfg.Video.MaxFrames, logger)

	classifier := classify.New(classify.Options{
		ModelPath: cfg.Model.Path,
		LabelPath: cfg.Model.LabelPath,
		Window:    cfg.Model.Window,
	}, logger)
	defer classifier.Close()
	logger.Info("classifier initialized", zap.String("state", classifier.State().String()))

	// Sentence composer. Gemini when a key is configured, otherwise the
	// deterministic word join.
	var primary compose.Composer
	if cfg.Composer.GeminiAPIKey != "" {
		gemini, err := compose.NewGeminiComposer(context.Background(), cfg.Composer.GeminiAPIKey, logger)
		if err != nil {
			logger.Warn("gemini composer unavailable, using word join", zap.Error(err))
		} else {
			primary = gemini
		}
	}
	composer := compose.NewService(primary, logger)

	sessions := session.NewMemoryStore(composer, logger)

	// Finalized-session archive.
	var archive *store.Store
	if cfg.History.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0755); err != nil {
			logger.Fatal("failed to create history directory", zap.Error(err))
		}
		archive, err = store.New(cfg.History.Path)
		if err != nil {
			logger.Fatal("failed to open history store", zap.Error(err))
		}
		defer archive.Close()
	}

	segmenter := segment.NewDetector(cfg.Segmenter)

	pipe := pipeline.New(decoder, segmenter, classifier, sessions, composer, archive, cfg.Video.Workers, logger)

	srv := server.New(server.Config{
		Pipeline:    pipe,
		Sessions:    sessions,
		Decoder:     decoder,
		Classifier:  classifier,
		Archive:     archive,
		MaxUploadMB: cfg.Video.MaxUploadMB,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port)
	go func() {
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("signify server started",
		zap.String("addr", addr),
		zap.String("environment", cfg.Environment))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
