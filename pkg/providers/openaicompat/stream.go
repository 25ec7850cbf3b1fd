package openaicompat

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/durablestream/go-llm/pkg/eventsource"
	"github.com/durablestream/go-llm/pkg/llm"
)

// streamDecoder maps chat.completion.chunk frames onto domain stream
// events. finish_reason and usage arrive on chunks of their own before the
// [DONE] sentinel, so they are stashed and folded into a single finish
// event when the sentinel lands.
type streamDecoder struct {
	finishReason *llm.FinishReason
	usage        *llm.Usage
	providerID   *string
	timestamp    *string
	metadata     *string

	// callIDs maps tool-call index to its identifier. The dialect sends the
	// id only on the first fragment of each call; later fragments carry just
	// the index and an arguments suffix.
	callIDs   map[int]string
	callNames map[int]string
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{
		callIDs:   make(map[int]string),
		callNames: make(map[int]string),
	}
}

func (d *streamDecoder) decode(ev *eventsource.MessageEvent) ([]llm.StreamEvent, error) {
	data := strings.TrimSpace(ev.Data)
	if data == "[DONE]" {
		return []llm.StreamEvent{llm.NewFinishEvent(llm.ResponseMetadata{
			FinishReason:         d.finishReason,
			Usage:                d.usage,
			ProviderID:           d.providerID,
			Timestamp:            d.timestamp,
			ProviderMetadataJSON: d.metadata,
		})}, nil
	}

	frame := gjson.Parse(data)
	if !frame.IsObject() {
		return nil, llm.NewError(llm.ErrCodeInternalError, "unparseable stream frame: %s", data)
	}

	if errObj := frame.Get("error"); errObj.Exists() {
		raw := data
		return []llm.StreamEvent{llm.NewErrorEvent(&llm.Error{
			Code:              llm.ErrCodeInternalError,
			Message:           errObj.Get("message").String(),
			ProviderErrorJSON: &raw,
		})}, nil
	}

	d.stashMetadata(frame)

	choice := frame.Get("choices.0")
	if reason := choice.Get("finish_reason").String(); reason != "" {
		mapped := llm.MapFinishReason(reason)
		d.finishReason = &mapped
	}

	delta := llm.StreamDelta{}
	if content := choice.Get("delta.content").String(); content != "" {
		delta.Content = []llm.ContentPart{llm.TextPart(content)}
	}
	responseID := frame.Get("id").String()
	choice.Get("delta.tool_calls").ForEach(func(_, call gjson.Result) bool {
		delta.ToolCalls = append(delta.ToolCalls, d.toolCallFragment(call, responseID))
		return true
	})
	if delta.IsEmpty() {
		return nil, nil
	}
	return []llm.StreamEvent{llm.NewDeltaEvent(delta)}, nil
}

// toolCallFragment normalizes one tool_calls delta entry. Identifiers and
// names are remembered per index so every fragment of a call carries them,
// and a missing id is derived from the response id so replay stays
// deterministic.
func (d *streamDecoder) toolCallFragment(call gjson.Result, responseID string) llm.ToolCall {
	index := int(call.Get("index").Int())
	if id := call.Get("id").String(); id != "" {
		d.callIDs[index] = id
	}
	if name := call.Get("function.name").String(); name != "" {
		d.callNames[index] = name
	}
	id, ok := d.callIDs[index]
	if !ok {
		id = fmt.Sprintf("%s-%d", responseID, index)
		d.callIDs[index] = id
	}
	return llm.ToolCall{
		ID:            id,
		Name:          d.callNames[index],
		ArgumentsJSON: call.Get("function.arguments").String(),
	}
}

func (d *streamDecoder) stashMetadata(frame gjson.Result) {
	if usage := frame.Get("usage"); usage.Exists() && usage.IsObject() {
		d.usage = usageFromJSON(usage)
	}
	if model := frame.Get("model").String(); model != "" && d.providerID == nil {
		d.providerID = &model
	}
	if created := frame.Get("created"); created.Exists() && d.timestamp == nil {
		timestamp := created.Raw
		d.timestamp = &timestamp
	}
	if d.metadata == nil {
		d.metadata = providerMetadata(frame)
	}
}
