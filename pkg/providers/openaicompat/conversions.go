// Request/response mapping for the OpenAI chat-completions dialect
package openaicompat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/durablestream/go-llm/pkg/llm"
)

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   *float32       `json:"temperature,omitempty"`
	MaxTokens     *uint32        `json:"max_tokens,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Tools         []toolDef      `json:"tools,omitempty"`
	ToolChoice    *string        `json:"tool_choice,omitempty"`
	User          string         `json:"user,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage content is either a plain string or an array of typed parts;
// the array form is only used when a message carries images.
type chatMessage struct {
	Role       string `json:"role"`
	Content    any    `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type toolDef struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// messagesToRequest converts domain messages and config into a
// chat-completions request. Text-only messages use the string content
// form; messages with images use the typed-part array. Inline images are
// embedded as data URLs.
func messagesToRequest(messages []llm.Message, config llm.Config) (*chatRequest, error) {
	request := &chatRequest{
		Model:       config.Model,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
		Stop:        config.StopSequences,
		ToolChoice:  config.ToolChoice,
	}
	if user, ok := config.ProviderOption("user"); ok {
		request.User = user
	}

	for _, message := range messages {
		converted := chatMessage{Role: string(message.Role)}
		if message.Name != nil {
			// tool messages carry the originating call id, not a display name
			if message.Role == llm.RoleTool {
				converted.ToolCallID = *message.Name
			} else {
				converted.Name = *message.Name
			}
		}
		if hasImages(message) {
			parts, err := typedParts(message)
			if err != nil {
				return nil, err
			}
			converted.Content = parts
		} else {
			converted.Content = message.GetText()
		}
		request.Messages = append(request.Messages, converted)
	}

	for _, tool := range config.Tools {
		if !json.Valid([]byte(tool.ParametersSchema)) {
			return nil, llm.NewError(llm.ErrCodeInternalError, "invalid parameters schema for tool %s", tool.Name)
		}
		description := ""
		if tool.Description != nil {
			description = *tool.Description
		}
		request.Tools = append(request.Tools, toolDef{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: description,
				Parameters:  json.RawMessage(tool.ParametersSchema),
			},
		})
	}
	return request, nil
}

func hasImages(message llm.Message) bool {
	for _, part := range message.Content {
		if part.IsImage() {
			return true
		}
	}
	return false
}

func typedParts(message llm.Message) ([]contentPart, error) {
	parts := make([]contentPart, 0, len(message.Content))
	for _, part := range message.Content {
		switch {
		case part.Text != nil:
			parts = append(parts, contentPart{Type: "text", Text: *part.Text})
		case part.Image != nil && part.Image.URL != nil:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{
				URL:    part.Image.URL.URL,
				Detail: string(part.Image.URL.Detail),
			}})
		case part.Image != nil && part.Image.Inline != nil:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{
				URL:    dataURL(part.Image.Inline),
				Detail: string(part.Image.Inline.Detail),
			}})
		}
	}
	return parts, nil
}

func dataURL(source *llm.ImageSource) string {
	return fmt.Sprintf("data:%s;base64,%s", source.MimeType, base64.StdEncoding.EncodeToString(source.Data))
}

// processResponse maps a complete chat-completions reply onto a ChatEvent.
// A choice that requests tools wins over any content it also carries.
func processResponse(body []byte) llm.ChatEvent {
	root := gjson.ParseBytes(body)
	choice := root.Get("choices.0")
	if !choice.Exists() {
		return llm.NewChatErrorEvent(llm.NewError(llm.ErrCodeInternalError, "response carried no choices"))
	}

	if calls := choice.Get("message.tool_calls"); calls.Exists() && len(calls.Array()) > 0 {
		return llm.NewToolRequestEvent(toolCallsFromJSON(calls, root.Get("id").String()))
	}

	var content []llm.ContentPart
	if text := choice.Get("message.content").String(); text != "" {
		content = append(content, llm.TextPart(text))
	}

	metadata := llm.ResponseMetadata{Usage: usageFromJSON(root.Get("usage"))}
	if reason := choice.Get("finish_reason").String(); reason != "" {
		mapped := llm.MapFinishReason(reason)
		metadata.FinishReason = &mapped
	}
	if model := root.Get("model").String(); model != "" {
		metadata.ProviderID = &model
	}
	if created := root.Get("created"); created.Exists() {
		timestamp := created.Raw
		metadata.Timestamp = &timestamp
	}
	metadata.ProviderMetadataJSON = providerMetadata(root)

	return llm.NewMessageEvent(llm.CompleteResponse{
		ID:       root.Get("id").String(),
		Content:  content,
		Metadata: metadata,
	})
}

// toolCallsFromJSON converts tool_calls entries, deriving identifiers from
// the response id when the server omits them so replay stays deterministic.
func toolCallsFromJSON(calls gjson.Result, responseID string) []llm.ToolCall {
	var out []llm.ToolCall
	calls.ForEach(func(_, call gjson.Result) bool {
		id := call.Get("id").String()
		if id == "" {
			id = fmt.Sprintf("%s-%d", responseID, len(out))
		}
		out = append(out, llm.ToolCall{
			ID:            id,
			Name:          call.Get("function.name").String(),
			ArgumentsJSON: call.Get("function.arguments").String(),
		})
		return true
	})
	return out
}

func usageFromJSON(usage gjson.Result) *llm.Usage {
	if !usage.Exists() {
		return nil
	}
	out := &llm.Usage{}
	if v := usage.Get("prompt_tokens"); v.Exists() {
		n := uint32(v.Uint())
		out.InputTokens = &n
	}
	if v := usage.Get("completion_tokens"); v.Exists() {
		n := uint32(v.Uint())
		out.OutputTokens = &n
	}
	if v := usage.Get("total_tokens"); v.Exists() {
		n := uint32(v.Uint())
		out.TotalTokens = &n
	}
	return out
}

// providerMetadata collects dialect-specific response fields that have no
// domain slot, rebuilt as a compact JSON object.
func providerMetadata(root gjson.Result) *string {
	out := "{}"
	for _, key := range []string{"system_fingerprint", "service_tier"} {
		if v := root.Get(key); v.Exists() {
			out, _ = sjson.SetRaw(out, key, v.Raw)
		}
	}
	if out == "{}" {
		return nil
	}
	return &out
}
