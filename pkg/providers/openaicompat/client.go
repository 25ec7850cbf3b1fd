package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/durablestream/go-llm/pkg/eventsource"
	"github.com/durablestream/go-llm/pkg/llm"
)

// Client implements llm.Client against an OpenAI-compatible server
type Client struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client from a client configuration. The base URL falls
// back to the OpenAI endpoint when unset; the API key may be empty for
// local servers that do not check it.
func New(config llm.ClientConfig) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = llm.DefaultOpenAIBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultRequestTimeout
	}
	return &Client{
		model:      config.Model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("provider", "openaicompat"),
	}
}

// Send performs a non-streaming chat completion
func (c *Client) Send(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatEvent {
	resp, llmErr := c.post(ctx, messages, config, false)
	if llmErr != nil {
		return llm.NewChatErrorEvent(llmErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.NewChatErrorEvent(llm.NewError(llm.ErrCodeInternalError, "failed to read response body: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return llm.NewChatErrorEvent(errorFromBody(resp.StatusCode, body))
	}
	return processResponse(body)
}

// Continue resumes a conversation after tool execution. Tool results are
// appended as "tool" role messages keyed by their call identifiers.
func (c *Client) Continue(ctx context.Context, messages []llm.Message, toolResults []llm.ToolResult, config llm.Config) llm.ChatEvent {
	extended := make([]llm.Message, 0, len(messages)+len(toolResults))
	extended = append(extended, messages...)
	for _, result := range toolResults {
		content := result.ResultJSON
		if result.Error != nil {
			content = *result.Error
		}
		message := llm.NewTextMessage(llm.RoleTool, content)
		id := result.ID
		message.Name = &id
		extended = append(extended, message)
	}
	return c.Send(ctx, extended, config)
}

// Stream opens a streaming chat completion. stream_options requests a
// usage chunk ahead of the [DONE] sentinel so token accounting survives
// streaming. Failures before the first frame are returned as an
// already-failed stream carrying one Error event.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatStream {
	resp, llmErr := c.post(ctx, messages, config, true)
	if llmErr != nil {
		return llm.NewFailedStream(llmErr)
	}

	source, err := eventsource.NewEventSource(resp)
	if err != nil {
		defer resp.Body.Close()
		if statusErr, ok := err.(*eventsource.InvalidStatusCodeError); ok {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
			return llm.NewFailedStream(errorFromBody(statusErr.StatusCode, body))
		}
		return llm.NewFailedStream(llm.NewError(llm.ErrCodeInternalError, "stream handshake failed: %v", err))
	}

	c.logger.Debug("stream opened", "model", c.model)
	return llm.NewDecodedStream(source, newStreamDecoder().decode)
}

func (c *Client) post(ctx context.Context, messages []llm.Message, config llm.Config, stream bool) (*http.Response, *llm.Error) {
	if config.Model == "" {
		config.Model = c.model
	}
	request, err := messagesToRequest(messages, config)
	if err != nil {
		if llmErr, ok := err.(*llm.Error); ok {
			return nil, llmErr
		}
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to build request: %v", err)
	}
	if stream {
		request.Stream = true
		request.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending chat request", "model", request.Model, "stream", stream, "messages", len(request.Messages))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "request failed: %v", err)
	}
	return resp, nil
}

// errorFromBody extracts the error message from a failure payload. The
// dialect reports errors as {"error": {"message": "...", ...}}.
func errorFromBody(status int, body []byte) *llm.Error {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	raw := string(body)
	return &llm.Error{
		Code:              llm.ErrorCodeFromStatus(status),
		Message:           message,
		ProviderErrorJSON: &raw,
	}
}
