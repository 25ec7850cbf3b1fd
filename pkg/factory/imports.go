package factory

import (
	"github.com/durablestream/go-llm/pkg/llm"
	"github.com/durablestream/go-llm/pkg/providers/mock"
	"github.com/durablestream/go-llm/pkg/providers/ollama"
	"github.com/durablestream/go-llm/pkg/providers/openaicompat"
)

func init() {
	RegisterProvider("ollama", func(config llm.ClientConfig) (llm.Client, error) {
		return ollama.New(config), nil
	})

	RegisterProvider("openaicompat", func(config llm.ClientConfig) (llm.Client, error) {
		return openaicompat.New(config), nil
	})

	RegisterProvider("mock", func(config llm.ClientConfig) (llm.Client, error) {
		return &mock.Client{}, nil
	})
}
