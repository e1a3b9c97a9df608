package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetCatalogOpenRouter(t *testing.T) {
	m, ok := PresetCatalog("openrouter")
	require.True(t, ok)
	names := make([]string, 0, len(m))
	for _, mi := range m {
		assert.Equal(t, ProviderOpenRouter, mi.Provider)
		names = append(names, mi.Name)
	}
	assert.Contains(t, names, DefaultModel)
	assert.Contains(t, names, "openai/gpt-4o-mini")
}

func TestPresetCatalogAliases(t *testing.T) {
	local, ok := PresetCatalog("local")
	require.True(t, ok)
	for _, mi := range local {
		assert.Equal(t, ProviderOllama, mi.Provider)
	}
	_, ok = PresetCatalog("nope")
	assert.False(t, ok)
}

func TestRecommendModel(t *testing.T) {
	cases := []struct {
		provider, tier, want string
	}{
		{"", "balanced", DefaultModel},
		{"openrouter", "cheap", "openai/gpt-4o-mini"},
		{"google", "high-context", "google/gemini-2.5-pro"},
		{"ollama", "cheap", "llama3.1:8b"},
		{"mock", "anything", "mock"},
	}
	for _, tc := range cases {
		got, ok := RecommendModel(tc.provider, tc.tier)
		assert.True(t, ok, "%s/%s", tc.provider, tc.tier)
		assert.Equal(t, tc.want, got, "%s/%s", tc.provider, tc.tier)
	}
	_, ok := RecommendModel("", "unknown")
	assert.False(t, ok)
}

func TestEstimateCostUSD(t *testing.T) {
	cost, ok := EstimateCostUSD("openai/gpt-4o-mini", 1000, 1000)
	require.True(t, ok)
	assert.InDelta(t, 0.00075, cost, 1e-9)

	_, ok = EstimateCostUSD("unknown/model", 10, 10)
	assert.False(t, ok)
}
