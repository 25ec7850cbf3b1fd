package ollama

import (
	"github.com/tidwall/gjson"

	"github.com/durablestream/go-llm/pkg/eventsource"
	"github.com/durablestream/go-llm/pkg/llm"
)

// streamDecoder maps Ollama NDJSON frames onto domain stream events. Each
// frame is a standalone JSON object; the final frame carries done=true plus
// the finish reason and token counts.
type streamDecoder struct {
	// ordinal counts emitted tool calls across the whole stream so derived
	// tool-call identifiers never collide within one response
	ordinal int
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{}
}

func (d *streamDecoder) decode(ev *eventsource.MessageEvent) ([]llm.StreamEvent, error) {
	frame := gjson.Parse(ev.Data)
	if !frame.IsObject() {
		return nil, llm.NewError(llm.ErrCodeInternalError, "unparseable stream frame: %s", ev.Data)
	}

	if errMsg := frame.Get("error"); errMsg.Exists() {
		raw := ev.Data
		return []llm.StreamEvent{llm.NewErrorEvent(&llm.Error{
			Code:              llm.ErrCodeInternalError,
			Message:           errMsg.String(),
			ProviderErrorJSON: &raw,
		})}, nil
	}

	var events []llm.StreamEvent
	delta := llm.StreamDelta{}
	if content := frame.Get("message.content").String(); content != "" {
		delta.Content = []llm.ContentPart{llm.TextPart(content)}
	}
	createdAt := frame.Get("created_at").String()
	frame.Get("message.tool_calls").ForEach(func(_, call gjson.Result) bool {
		delta.ToolCalls = append(delta.ToolCalls, llm.ToolCall{
			ID:            toolCallID(createdAt, d.ordinal),
			Name:          call.Get("function.name").String(),
			ArgumentsJSON: call.Get("function.arguments").Raw,
		})
		d.ordinal++
		return true
	})
	// frames carrying neither content nor tool calls are suppressed
	if !delta.IsEmpty() {
		events = append(events, llm.NewDeltaEvent(delta))
	}

	if frame.Get("done").Bool() {
		events = append(events, llm.NewFinishEvent(d.finishMetadata(frame)))
	}
	return events, nil
}

func (d *streamDecoder) finishMetadata(frame gjson.Result) llm.ResponseMetadata {
	reason := llm.MapFinishReason(firstNonEmpty(frame.Get("done_reason").String(), "stop"))
	metadata := llm.ResponseMetadata{FinishReason: &reason}

	var input, output *int
	if v := frame.Get("prompt_eval_count"); v.Exists() {
		n := int(v.Int())
		input = &n
	}
	if v := frame.Get("eval_count"); v.Exists() {
		n := int(v.Int())
		output = &n
	}
	metadata.Usage = usageFromCounts(input, output)

	if createdAt := frame.Get("created_at").String(); createdAt != "" {
		metadata.Timestamp = &createdAt
	}
	if model := frame.Get("model").String(); model != "" {
		metadata.ProviderID = &model
	}
	return metadata
}
