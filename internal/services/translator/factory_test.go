package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lingua/internal/common"
)

func TestNewTranslationService_Offline(t *testing.T) {
	cfg := &common.TranslatorConfig{Provider: "offline"}
	svc, err := NewTranslationService(cfg, common.GetLogger())
	require.NoError(t, err)

	out, err := svc.Translate(context.Background(), "Hello world", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, "[fr] Hello world", out)
}

func TestNewTranslationService_DefaultsToOffline(t *testing.T) {
	cfg := &common.TranslatorConfig{}
	svc, err := NewTranslationService(cfg, common.GetLogger())
	require.NoError(t, err)
	assert.IsType(t, &OfflineTranslator{}, svc)
}

func TestNewTranslationService_UnknownProvider(t *testing.T) {
	cfg := &common.TranslatorConfig{Provider: "deepl"}
	_, err := NewTranslationService(cfg, common.GetLogger())
	assert.Error(t, err)
}

func TestNewTranslationService_ClaudeRequiresAPIKey(t *testing.T) {
	cfg := &common.TranslatorConfig{Provider: "claude"}
	_, err := NewTranslationService(cfg, common.GetLogger())
	assert.Error(t, err)
}

func TestOfflineTranslator_EmptyText(t *testing.T) {
	svc := NewOfflineTranslator(common.GetLogger())
	_, err := svc.Translate(context.Background(), "   ", "en", "fr")
	assert.Error(t, err)
}

func TestOfflineTranslator_IsDeterministic(t *testing.T) {
	svc := NewOfflineTranslator(common.GetLogger())
	first, err := svc.Translate(context.Background(), "Save changes", "en", "de")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Translate(context.Background(), "Save changes", "en", "de")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
