package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
)

// OfflineTranslator is a deterministic provider used in development and
// tests. It never calls out to a network service; the output is a stable
// function of the input so test assertions stay reproducible.
type OfflineTranslator struct {
	logger arbor.ILogger
}

// NewOfflineTranslator creates the offline translation provider.
func NewOfflineTranslator(logger arbor.ILogger) *OfflineTranslator {
	logger.Debug().Msg("Offline translator initialized")
	return &OfflineTranslator{logger: logger}
}

// Translate produces a deterministic pseudo-translation tagged with the
// target language.
func (s *OfflineTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty for translation")
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

// HealthCheck always passes; there is no upstream dependency.
func (s *OfflineTranslator) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *OfflineTranslator) Close() error {
	return nil
}
