package translator

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/interfaces"
)

// NewTranslationService creates the translation provider selected by
// configuration. Supported providers are "claude", "gemini" and
// "offline"; an empty provider falls back to offline.
func NewTranslationService(cfg *common.TranslatorConfig, logger arbor.ILogger) (interfaces.TranslationService, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "offline"
	}

	logger.Info().Str("provider", provider).Msg("Initializing translation service")

	switch provider {
	case "claude":
		return NewClaudeTranslator(&cfg.Claude, logger)
	case "gemini":
		return NewGeminiTranslator(&cfg.Gemini, logger)
	case "offline":
		return NewOfflineTranslator(logger), nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// translationPrompt builds the single-turn prompt shared by the cloud
// providers.
func translationPrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", sourceLang, targetLang, text)
}
