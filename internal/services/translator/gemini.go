package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"google.golang.org/genai"
)

const geminiSystemPrompt = "You are a professional translator. Translate the user's text exactly, " +
	"preserving placeholders, markup and whitespace. Reply with the translation only, " +
	"no commentary and no quotation marks."

// GeminiTranslator implements the TranslationService interface using the
// Google Gemini API.
type GeminiTranslator struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiTranslator creates a new Gemini translation service instance.
//
// The service initialization includes:
//  1. Validating the Google API key
//  2. Setting default model name if not specified
//  3. Parsing timeout duration from configuration
//  4. Initializing the genai client
func NewGeminiTranslator(geminiConfig *common.GeminiConfig, logger arbor.ILogger) (*GeminiTranslator, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required for the Gemini translator (set via GEMINI_API_KEY or translator.gemini.api_key in config)")
	}

	// Set default model name if not specified
	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	// Parse timeout duration
	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	// Initialize genai client
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiTranslator{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini translator initialized successfully")

	return service, nil
}

// Translate returns the machine translation of text from sourceLang to
// targetLang.
func (s *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty for translation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromText(translationPrompt(text, sourceLang, targetLang)),
			},
		},
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser),
	}
	if s.config.Temperature > 0 {
		config.Temperature = genai.Ptr(s.config.Temperature)
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("source_lang", sourceLang).
			Str("target_lang", targetLang).
			Msg("Gemini translation failed")
		return "", fmt.Errorf("translation generation failed: %w", err)
	}

	// Extract text from response - iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no translation generated from Gemini API")
	}

	s.logger.Debug().
		Str("source_lang", sourceLang).
		Str("target_lang", targetLang).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini translation completed")

	return strings.TrimSpace(response.String()), nil
}

// HealthCheck verifies the Gemini translator is operational.
func (s *GeminiTranslator) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Translate(healthCheckCtx, "ping", "en", "en")
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *GeminiTranslator) Close() error {
	s.logger.Debug().Msg("Closing Gemini translator")
	s.client = nil
	return nil
}
