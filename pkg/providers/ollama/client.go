package ollama

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

// Client implements llm.Client against the Ollama HTTP API
type Client struct {
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Ollama client from a client configuration. The model and
// base URL fall back to the package defaults when unset.
func New(config llm.ClientConfig) *Client {
	model := config.Model
	if model == "" {
		model = llm.DefaultOllamaModel
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = llm.DefaultOllamaBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultRequestTimeout
	}
	return &Client{
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("provider", "ollama"),
	}
}

// Send performs a non-streaming chat completion
func (c *Client) Send(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatEvent {
	body, llmErr := c.complete(ctx, messages, config)
	if llmErr != nil {
		return llm.NewChatErrorEvent(llmErr)
	}
	return processResponse(body)
}

// Continue resumes a conversation after tool execution. Ollama has no
// dedicated tool-result message shape beyond the "tool" role, so each
// result is appended as a tool message carrying the result payload.
func (c *Client) Continue(ctx context.Context, messages []llm.Message, toolResults []llm.ToolResult, config llm.Config) llm.ChatEvent {
	extended := make([]llm.Message, 0, len(messages)+len(toolResults))
	extended = append(extended, messages...)
	for _, result := range toolResults {
		content := result.ResultJSON
		if result.Error != nil {
			content = *result.Error
		}
		extended = append(extended, llm.NewTextMessage(llm.RoleTool, content))
	}
	return c.Send(ctx, extended, config)
}

// Stream opens a streaming chat completion. Failures before the first
// frame are returned as an already-failed stream carrying one Error event.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, config llm.Config) llm.ChatStream {
	resp, llmErr := c.post(ctx, messages, config, true)
	if llmErr != nil {
		return llm.NewFailedStream(llmErr)
	}

	source, err := eventsource.NewEventSource(resp)
	if err != nil {
		defer resp.Body.Close()
		return llm.NewFailedStream(c.classifyHandshake(resp, err))
	}

	c.logger.Debug("stream opened", "model", c.model)
	return llm.NewDecodedStream(source, newStreamDecoder().decode)
}

// complete runs one non-streaming request and returns the raw body
func (c *Client) complete(ctx context.Context, messages []llm.Message, config llm.Config) ([]byte, *llm.Error) {
	resp, llmErr := c.post(ctx, messages, config, false)
	if llmErr != nil {
		return nil, llmErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromBody(resp.StatusCode, body)
	}
	return body, nil
}

// post issues the /api/chat request shared by both paths
func (c *Client) post(ctx context.Context, messages []llm.Message, config llm.Config, stream bool) (*http.Response, *llm.Error) {
	if config.Model == "" {
		config.Model = c.model
	}
	request, err := messagesToRequest(messages, config)
	if err != nil {
		var llmErr *llm.Error
		if e, ok := err.(*llm.Error); ok {
			llmErr = e
		} else {
			llmErr = llm.NewError(llm.ErrCodeInternalError, "failed to build request: %v", err)
		}
		return nil, llmErr
	}
	request.Stream = stream

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending chat request", "model", request.Model, "stream", stream, "messages", len(request.Messages))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrCodeInternalError, "request failed: %v", err)
	}
	return resp, nil
}

// classifyHandshake turns an event-source handshake failure into a domain
// error, draining the error payload from the still-unread body when the
// status code was the problem.
func (c *Client) classifyHandshake(resp *http.Response, err error) *llm.Error {
	if statusErr, ok := err.(*eventsource.InvalidStatusCodeError); ok {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return errorFromBody(statusErr.StatusCode, body)
	}
	return llm.NewError(llm.ErrCodeInternalError, "stream handshake failed: %v", err)
}

// errorFromBody extracts Ollama's error message from a failure payload.
// Ollama reports errors as {"error": "..."}.
func errorFromBody(status int, body []byte) *llm.Error {
	message := gjson.GetBytes(body, "error").String()
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
