package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Model metadata and simple pricing helpers for UX warnings.
// Prices are illustrative and should be verified against OpenRouter docs.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
	// StructuredOutput marks models known to honor response_format json_schema.
	StructuredOutput bool
}

// DefaultModel is used when neither flags nor config name a model.
const DefaultModel = "google/gemini-2.5-flash"

var (
	catalogMu sync.RWMutex
	models    = indexModels([]ModelInfo{
		{Name: "google/gemini-2.5-flash", Provider: ProviderOpenRouter, ContextTokens: 1048576, InputPerK: 0.0003, OutputPerK: 0.0025, StructuredOutput: true},
		{Name: "google/gemini-2.5-pro", Provider: ProviderOpenRouter, ContextTokens: 1048576, InputPerK: 0.00125, OutputPerK: 0.01, StructuredOutput: true},
		{Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006, StructuredOutput: true},
		{Name: "openai/gpt-4o", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01, StructuredOutput: true},
		{Name: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
		{Name: "deepseek/deepseek-r1:free", Provider: ProviderOpenRouter, ContextTokens: 128000},
		{Name: "meta-llama/llama-3.1-70b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
		// Common local (Ollama) tags; Ollama enforces the schema itself.
		{Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 8192, StructuredOutput: true},
		{Name: "qwen2.5:7b", Provider: ProviderOllama, ContextTokens: 32768, StructuredOutput: true},
		{Name: "mistral-nemo:latest", Provider: ProviderOllama, ContextTokens: 8192, StructuredOutput: true},
		{Name: "mock", Provider: ProviderMock, ContextTokens: 1 << 20, StructuredOutput: true},
	})
)

func indexModels(list []ModelInfo) map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(list))
	for _, mi := range list {
		m[mi.Name] = mi
	}
	return m
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "openai/gpt-4o-mini": {"Name":"openai/gpt-4o-mini","ContextTokens":128000,"InputPerK":0.00015,"OutputPerK":0.0006} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns the current catalog sorted by name.
func Catalog() []ModelInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
