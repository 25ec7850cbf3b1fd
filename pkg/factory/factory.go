package factory

import (
	"strings"

	"github.com/durablestream/go-llm/pkg/llm"
)

// DefaultProvider is used when the configuration names no provider
const DefaultProvider = "ollama"

// CreateClient creates an LLM client based on the configuration
func CreateClient(config llm.ClientConfig) (llm.Client, error) {
	provider := config.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	provider = strings.ToLower(provider)

	constructor, exists := GetProvider(provider)
	if !exists {
		return nil, llm.NewError(llm.ErrCodeInvalidRequest, "unsupported provider: %s", provider)
	}
	return constructor(config)
}

// CreateClientFromEnv creates an LLM client from environment variables
func CreateClientFromEnv() (llm.Client, error) {
	return CreateClient(llm.GetClientConfigFromEnv())
}
