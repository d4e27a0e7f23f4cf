package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PROVIDER_ORDER", "")
	t.Setenv("DISPATCH_MODE", "")
	t.Setenv("EVENT_TIMEOUT", "")
	t.Setenv("REPLY_SUFFIX", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, DefaultProviderOrder, cfg.Gateway.Order)
	assert.Equal(t, ModeSync, cfg.Dispatch.Mode)
	assert.Equal(t, 45*time.Second, cfg.Dispatch.EventTimeout)
	assert.Equal(t, 4900, cfg.Reply.MaxChars)
	assert.True(t, cfg.Reply.StripReasoning)
	assert.Less(t, cfg.Gateway.ConnectTimeout, cfg.Gateway.RequestTimeout)
	assert.True(t, cfg.Ollama.Enabled())
}

func TestLoadProviderOrderAndMode(t *testing.T) {
	t.Setenv("PROVIDER_ORDER", " HF, ollama ,,gemini ")
	t.Setenv("DISPATCH_MODE", "ASYNC")
	t.Setenv("EVENT_TIMEOUT", "12")
	t.Setenv("REPLY_SUFFIX", " 🤖 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"hf", "ollama", "gemini"}, cfg.Gateway.Order)
	assert.Equal(t, ModeAsync, cfg.Dispatch.Mode)
	assert.Equal(t, 12*time.Second, cfg.Dispatch.EventTimeout)
	assert.Equal(t, "🤖", cfg.Reply.Suffix)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":            "80 80",
		"DISPATCH_MODE":   "later",
		"EVENT_TIMEOUT":   "soon",
		"GEN_MAX_TOKENS":  "0",
		"GEN_TEMPERATURE": "warm",
		"REPLY_MAX_CHARS": "-1",
		"DEV_CHANNEL":     "maybe",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLINEConfigEnabled(t *testing.T) {
	assert.False(t, LINEConfig{ChannelSecret: "s"}.Enabled())
	assert.True(t, LINEConfig{ChannelSecret: "s", AccessToken: "t"}.Enabled())
}
