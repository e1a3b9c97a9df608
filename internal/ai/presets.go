package ai

// PresetCatalog returns the catalog entries served by one runtime.
func PresetCatalog(provider string) ([]ModelInfo, bool) {
	p := ResolveProvider(provider)
	var out []ModelInfo
	for _, mi := range Catalog() {
		if mi.Provider == p {
			out = append(out, mi)
		}
	}
	return out, len(out) > 0
}

// RecommendModel returns a recommended model name for a given tier and provider.
// If provider is empty, defaults to "openrouter". Tiers: cheap|balanced|high-context.
func RecommendModel(provider, tier string) (string, bool) {
	switch ResolveProvider(provider) {
	case ProviderOpenRouter:
		switch tier {
		case "cheap":
			return "openai/gpt-4o-mini", true
		case "balanced":
			return DefaultModel, true
		case "high-context":
			return "google/gemini-2.5-pro", true
		}
	case ProviderOllama:
		switch tier {
		case "cheap":
			return "llama3.1:8b", true
		case "balanced", "high-context":
			return "qwen2.5:7b", true
		}
	case ProviderMock:
		return "mock", true
	}
	return "", false
}
