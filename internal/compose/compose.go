// Package compose turns an ordered list of recognized sign words into a
// natural-language sentence, preferring an external language model and
// falling back to a deterministic join when it is unavailable.
package compose

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// NoSignsMessage is returned when the word list is empty. Returning a
// fixed message instead of an empty string keeps clients from rendering a
// blank sentence.
const NoSignsMessage = "No valid signs detected"

// Composer produces a sentence from an ordered word list.
type Composer interface {
	Compose(ctx context.Context, words []string) (string, error)
}

// Service wraps a primary composer with the deterministic fallback. Any
// primary failure (network, quota, malformed response) is non-fatal.
type Service struct {
	primary Composer
	logger  *zap.Logger
}

// NewService creates a Service. primary may be nil, in which case every
// call takes the fallback path.
func NewService(primary Composer, logger *zap.Logger) *Service {
	return &Service{primary: primary, logger: logger}
}

// Compose returns a sentence for the given words. It never fails: an
// empty word list yields NoSignsMessage and a primary-path error yields
// the space-joined words unchanged.
func (s *Service) Compose(ctx context.Context, words []string) string {
	if len(words) == 0 {
		return NoSignsMessage
	}

	if s.primary != nil {
		sentence, err := s.primary.Compose(ctx, words)
		if err == nil && strings.TrimSpace(sentence) != "" {
			return strings.TrimSpace(sentence)
		}
		if err != nil {
			s.logger.Warn("sentence composer unavailable, using word join",
				zap.Strings("words", words),
				zap.Error(err))
		}
	}

	return strings.Join(words, " ")
}
