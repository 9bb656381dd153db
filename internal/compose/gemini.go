package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel   = "gemini-2.0-flash"
	composeTimeout = 15 * time.Second

	instruction = "You are given words recognized from sign language, in order. " +
		"Produce one grammatically correct natural sentence using them. " +
		"Return only the sentence, nothing else."
)

// GeminiComposer implements Composer using Google's Gemini API.
type GeminiComposer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiComposer creates a Gemini-backed composer. apiKey must be
// non-empty; callers decide whether a missing key means "run without a
// primary composer" rather than failing startup.
func NewGeminiComposer(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiComposer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiComposer{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

// Compose asks the model for a sentence over the given words.
func (g *GeminiComposer) Compose(ctx context.Context, words []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()

	prompt := instruction + "\n\nWords: " + strings.Join(words, " ")
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate sentence: %w", err)
	}

	text := response.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return strings.TrimSpace(text), nil
}
