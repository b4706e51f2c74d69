package config

// ModelInfo describes one known model for the provider picker.
type ModelInfo struct {
	Name        string
	ID          string
	ContextSize int
}

type ProviderModels struct {
	Provider   string
	AuthMethod string
	Models     []ModelInfo
}

// ProviderModelsList is the curated model catalog shown by the provider
// command. It is advisory; any model id the endpoint accepts works.
var ProviderModelsList = []ProviderModels{
	{
		Provider:   "openai",
		AuthMethod: "api_key",
		Models: []ModelInfo{
			{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextSize: 128000},
			{ID: "gpt-4.1", Name: "GPT-4.1", ContextSize: 1000000},
		},
	},
	{
		Provider:   "anthropic",
		AuthMethod: "api_key",
		Models: []ModelInfo{
			{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", ContextSize: 200000},
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ContextSize: 200000},
			{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextSize: 200000},
		},
	},
	{
		Provider:   "local",
		AuthMethod: "none",
		Models: []ModelInfo{
			{ID: "llama3", Name: "Llama 3", ContextSize: 8192},
			{ID: "qwen2.5", Name: "Qwen 2.5", ContextSize: 32768},
			{ID: "mistral", Name: "Mistral", ContextSize: 32768},
		},
	},
}

// ModelsFor returns the catalog entry for a provider name.
func ModelsFor(provider string) (ProviderModels, bool) {
	for _, pm := range ProviderModelsList {
		if pm.Provider == provider {
			return pm, true
		}
	}
	return ProviderModels{}, false
}
