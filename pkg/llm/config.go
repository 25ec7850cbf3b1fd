// Configuration types for clients and individual requests
package llm

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultOllamaModel   = "llama3.1"
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
)

const DefaultRequestTimeout = 60 * time.Second

// ClientConfig holds configuration for constructing provider clients
type ClientConfig struct {
	Provider string            `json:"provider"` // ollama, openaicompat, mock
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Timeout  time.Duration     `json:"timeout,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"` // Provider-specific configs
}

// KV is one provider-specific request option
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ToolDefinition describes one tool the model may call. ParametersSchema is
// a JSON Schema document encoded as a string.
type ToolDefinition struct {
	Name             string  `json:"name"`
	Description      *string `json:"description,omitempty"`
	ParametersSchema string  `json:"parameters_schema"`
}

// Config is the per-request configuration. It crosses the durable journal
// boundary, so every field must round-trip losslessly through JSON.
type Config struct {
	Model           string           `json:"model"`
	Temperature     *float32         `json:"temperature,omitempty"`
	MaxTokens       *uint32          `json:"max_tokens,omitempty"`
	StopSequences   []string         `json:"stop_sequences,omitempty"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	ToolChoice      *string          `json:"tool_choice,omitempty"`
	ProviderOptions []KV             `json:"provider_options,omitempty"`
}

// ProviderOption returns a provider option value by key
func (c Config) ProviderOption(key string) (string, bool) {
	for _, kv := range c.ProviderOptions {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// GetClientConfigFromEnv builds a ClientConfig from environment variables.
// LLM_PROVIDER selects the provider; provider-specific variables fill in
// the rest with sensible defaults.
func GetClientConfigFromEnv() ClientConfig {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "openaicompat":
		return ClientConfig{
			Provider: provider,
			Model:    envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			BaseURL:  envOrDefault("OPENAI_BASE_URL", DefaultOpenAIBaseURL),
			Timeout:  parseTimeoutFromEnv("LLM_TIMEOUT_SECONDS", DefaultRequestTimeout),
		}
	default:
		return ClientConfig{
			Provider: "ollama",
			Model:    envOrDefault("OLLAMA_MODEL", DefaultOllamaModel),
			BaseURL:  envOrDefault("OLLAMA_BASE_URL", DefaultOllamaBaseURL),
			Timeout:  parseTimeoutFromEnv("LLM_TIMEOUT_SECONDS", DefaultRequestTimeout),
		}
	}
}

func envOrDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// parseTimeoutFromEnv parses timeout from environment variable with fallback to default
func parseTimeoutFromEnv(envVar string, defaultTimeout time.Duration) time.Duration {
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if timeoutSecs, err := strconv.Atoi(timeoutStr); err == nil && timeoutSecs > 0 {
			return time.Duration(timeoutSecs) * time.Second
		}
	}
	return defaultTimeout
}
