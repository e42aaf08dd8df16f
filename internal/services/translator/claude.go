package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
)

const claudeSystemPrompt = "You are a professional translator. Translate the user's text exactly, " +
	"preserving placeholders, markup and whitespace. Reply with the translation only, " +
	"no commentary and no quotation marks."

// ClaudeTranslator implements the TranslationService interface using the
// Anthropic Claude API.
type ClaudeTranslator struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeTranslator creates a new Claude translation service instance.
//
// The service initialization includes:
//  1. Validating the Anthropic API key
//  2. Setting default model name if not specified
//  3. Parsing timeout duration from configuration
//  4. Initializing the Claude client
func NewClaudeTranslator(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeTranslator, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the Claude translator (set via ANTHROPIC_API_KEY or translator.claude.api_key in config)")
	}

	// Set default model name if not specified
	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	// Parse timeout duration
	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	// Set default max tokens
	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeTranslator{
		config:    claudeConfig,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Float32("temperature", claudeConfig.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude translator initialized successfully")

	return service, nil
}

// Translate returns the machine translation of text from sourceLang to
// targetLang. A failure affects only the segment being translated; the
// caller decides whether to skip or escalate.
func (s *ClaudeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text cannot be empty for translation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(translationPrompt(text, sourceLang, targetLang)),
			),
		},
		System: []anthropic.TextBlockParam{
			{Text: claudeSystemPrompt},
		},
	}

	// Set temperature if configured
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("source_lang", sourceLang).
			Str("target_lang", targetLang).
			Msg("Claude translation failed")
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	// Extract text from response
	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no translation generated from Claude API")
	}

	s.logger.Debug().
		Str("source_lang", sourceLang).
		Str("target_lang", targetLang).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude translation completed")

	return strings.TrimSpace(response.String()), nil
}

// HealthCheck verifies the Claude translator is operational.
func (s *ClaudeTranslator) HealthCheck(ctx context.Context) error {
	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Translate(healthCheckCtx, "ping", "en", "en")
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeTranslator) Close() error {
	s.logger.Debug().Msg("Closing Claude translator")
	// Claude client doesn't require explicit cleanup
	return nil
}
