// Request/response mapping between the domain types and Ollama's dialect
package ollama

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/durablestream/go-llm/pkg/llm"
)

// chatRequest is the body of an Ollama /api/chat call
type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Tools     []toolDef      `json:"tools,omitempty"`
	Format    string         `json:"format,omitempty"`
	Options   *modelOptions  `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Stream    bool           `json:"stream"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
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

// modelOptions mirrors the Ollama model options that are exposed through
// provider options; unset fields are omitted from the request.
type modelOptions struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	TopP             *float32 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	MinP             *float32 `json:"min_p,omitempty"`
	TypicalP         *float32 `json:"typical_p,omitempty"`
	NumPredict       *int     `json:"num_predict,omitempty"`
	NumCtx           *int     `json:"num_ctx,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	RepeatPenalty    *float32 `json:"repeat_penalty,omitempty"`
	RepeatLastN      *int     `json:"repeat_last_n,omitempty"`
	PresencePenalty  *float32 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty"`
	Mirostat         *int     `json:"mirostat,omitempty"`
	MirostatEta      *float32 `json:"mirostat_eta,omitempty"`
	MirostatTau      *float32 `json:"mirostat_tau,omitempty"`
	NumKeep          *int     `json:"num_keep,omitempty"`
	PenalizeNewline  *bool    `json:"penalize_newline,omitempty"`
}

// messagesToRequest converts domain messages and config into an Ollama
// chat request. Text parts are joined with newlines; inline images are
// base64-encoded into the message's images list. URL-referenced images
// are not supported by Ollama's API and fail the conversion.
func messagesToRequest(messages []llm.Message, config llm.Config) (*chatRequest, error) {
	request := &chatRequest{Model: config.Model}

	for _, message := range messages {
		converted := chatMessage{Role: string(message.Role)}
		for _, part := range message.Content {
			switch {
			case part.Text != nil:
				if converted.Content != "" {
					converted.Content += "\n"
				}
				converted.Content += *part.Text
			case part.Image != nil:
				if part.Image.Inline == nil {
					return nil, &llm.Error{
						Code:    llm.ErrCodeUnsupported,
						Message: "ollama only accepts inline base64 images",
					}
				}
				converted.Images = append(converted.Images, base64.StdEncoding.EncodeToString(part.Image.Inline.Data))
			}
		}
		request.Messages = append(request.Messages, converted)
	}

	for _, tool := range config.Tools {
		if !json.Valid([]byte(tool.ParametersSchema)) {
			return nil, &llm.Error{
				Code:    llm.ErrCodeInternalError,
				Message: fmt.Sprintf("invalid parameters schema for tool %s", tool.Name),
			}
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

	options := modelOptions{
		Temperature:      config.Temperature,
		Stop:             config.StopSequences,
		TopP:             floatOption(config, "top_p"),
		TopK:             intOption(config, "top_k"),
		MinP:             floatOption(config, "min_p"),
		TypicalP:         floatOption(config, "typical_p"),
		NumCtx:           intOption(config, "num_ctx"),
		Seed:             intOption(config, "seed"),
		RepeatPenalty:    floatOption(config, "repeat_penalty"),
		RepeatLastN:      intOption(config, "repeat_last_n"),
		PresencePenalty:  floatOption(config, "presence_penalty"),
		FrequencyPenalty: floatOption(config, "frequency_penalty"),
		Mirostat:         intOption(config, "mirostat"),
		MirostatEta:      floatOption(config, "mirostat_eta"),
		MirostatTau:      floatOption(config, "mirostat_tau"),
		NumKeep:          intOption(config, "num_keep"),
		PenalizeNewline:  boolOption(config, "penalize_newline"),
	}
	if config.MaxTokens != nil {
		numPredict := int(*config.MaxTokens)
		options.NumPredict = &numPredict
	}
	request.Options = &options

	if format, ok := config.ProviderOption("format"); ok {
		request.Format = format
	}
	if keepAlive, ok := config.ProviderOption("keep_alive"); ok {
		request.KeepAlive = keepAlive
	}
	return request, nil
}

func floatOption(config llm.Config, key string) *float32 {
	if raw, ok := config.ProviderOption(key); ok {
		if v, err := strconv.ParseFloat(raw, 32); err == nil {
			f := float32(v)
			return &f
		}
	}
	return nil
}

func intOption(config llm.Config, key string) *int {
	if raw, ok := config.ProviderOption(key); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return &v
		}
	}
	return nil
}

func boolOption(config llm.Config, key string) *bool {
	if raw, ok := config.ProviderOption(key); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			return &v
		}
	}
	return nil
}

// chatResponse is the body of a non-streaming Ollama /api/chat reply
type chatResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls []struct {
			Function struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount *int   `json:"prompt_eval_count"`
	EvalCount       *int   `json:"eval_count"`
}

// processResponse maps a complete Ollama reply onto a ChatEvent. A reply
// that requests tools wins over any content it also carries.
func processResponse(body []byte) llm.ChatEvent {
	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return llm.NewChatErrorEvent(&llm.Error{
			Code:    llm.ErrCodeInternalError,
			Message: fmt.Sprintf("failed to parse response: %v", err),
		})
	}

	if len(response.Message.ToolCalls) > 0 {
		calls := make([]llm.ToolCall, 0, len(response.Message.ToolCalls))
		for i, call := range response.Message.ToolCalls {
			calls = append(calls, llm.ToolCall{
				ID:            toolCallID(response.CreatedAt, i),
				Name:          call.Function.Name,
				ArgumentsJSON: string(call.Function.Arguments),
			})
		}
		return llm.NewToolRequestEvent(calls)
	}

	var content []llm.ContentPart
	if response.Message.Content != "" {
		content = append(content, llm.TextPart(response.Message.Content))
	}

	metadata := llm.ResponseMetadata{Usage: usageFromCounts(response.PromptEvalCount, response.EvalCount)}
	if response.Done {
		reason := llm.MapFinishReason(firstNonEmpty(response.DoneReason, "stop"))
		metadata.FinishReason = &reason
	}
	if response.CreatedAt != "" {
		metadata.Timestamp = &response.CreatedAt
	}
	if response.Model != "" {
		metadata.ProviderID = &response.Model
	}

	return llm.NewMessageEvent(llm.CompleteResponse{
		ID:       fmt.Sprintf("ollama-%s", response.CreatedAt),
		Content:  content,
		Metadata: metadata,
	})
}

// toolCallID derives a deterministic identifier from the response
// timestamp and the emission ordinal, so two tool calls in one response
// never collide and replay reproduces the same IDs.
func toolCallID(timestamp string, ordinal int) string {
	return fmt.Sprintf("ollama-%s-%d", timestamp, ordinal)
}

func usageFromCounts(input, output *int) *llm.Usage {
	if input == nil && output == nil {
		return nil
	}
	usage := &llm.Usage{}
	var total uint32
	if input != nil {
		v := uint32(*input)
		usage.InputTokens = &v
		total += v
	}
	if output != nil {
		v := uint32(*output)
		usage.OutputTokens = &v
		total += v
	}
	usage.TotalTokens = &total
	return usage
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
