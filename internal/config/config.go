// Package config loads server configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/signifyapp/signify-server/internal/segment"
)

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type ModelConfig struct {
	Path      string `yaml:"path"`
	LabelPath string `yaml:"label_path"`
	// Window is the temporal input length of the classifier.
	Window int `yaml:"window"`
}

type DetectorConfig struct {
	MaxHands      int     `yaml:"max_hands"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type ComposerConfig struct {
	// GeminiAPIKey enables the LLM sentence composer when set; the
	// deterministic word join is always available as fallback.
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

type VideoConfig struct {
	// MaxFrames bounds how many frames are decoded from one upload.
	MaxFrames int `yaml:"max_frames"`
	// MaxUploadMB bounds the accepted video size.
	MaxUploadMB int `yaml:"max_upload_mb"`
	// Workers bounds concurrent video jobs; 0 means NumCPU.
	Workers int `yaml:"workers"`
}

type HistoryConfig struct {
	// Path is the SQLite file holding finalized sessions. Empty
	// disables the archive.
	Path string `yaml:"path"`
}

type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Model       ModelConfig    `yaml:"model"`
	Detector    DetectorConfig `yaml:"detector"`
	Segmenter   segment.Config `yaml:"segmenter"`
	Composer    ComposerConfig `yaml:"composer"`
	Video       VideoConfig    `yaml:"video"`
	History     HistoryConfig  `yaml:"history"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Model: ModelConfig{
			Path:      "models/model.tflite",
			LabelPath: "models/labels.json",
			Window:    143,
		},
		Detector: DetectorConfig{
			MaxHands:      2,
			MinConfidence: 0.5,
		},
		Segmenter: segment.DefaultConfig(),
		Video: VideoConfig{
			MaxFrames:   143,
			MaxUploadMB: 50,
			Workers:     0,
		},
		History: HistoryConfig{
			Path: "data/signify-history.db",
		},
	}
}

// Load reads the config file at path (if non-empty), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIGNIFY_BIND"); v != "" {
		cfg.HTTP.Bind = v
	}
	if v := os.Getenv("SIGNIFY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = port
		}
	}
	if v := os.Getenv("SIGNIFY_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("SIGNIFY_LABEL_PATH"); v != "" {
		cfg.Model.LabelPath = v
	}
	if v := os.Getenv("SIGNIFY_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Composer.GeminiAPIKey = v
	}
}

func validate(cfg Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", cfg.HTTP.Port)
	}
	if cfg.Model.Window <= 0 {
		return fmt.Errorf("model window must be positive, got %d", cfg.Model.Window)
	}
	if cfg.Video.MaxFrames <= 0 {
		return fmt.Errorf("video max_frames must be positive, got %d", cfg.Video.MaxFrames)
	}
	return nil
}
