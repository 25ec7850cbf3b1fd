// Message types and helpers
package llm

// Role defines the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single chat message with multi-modal content
type Message struct {
	Role    Role          `json:"role"`
	Name    *string       `json:"name,omitempty"`
	Content []ContentPart `json:"content"`
}

// NewTextMessage creates a message with a single text part
func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentPart{TextPart(text)},
	}
}

// GetText concatenates all text parts of the message in order
func (m Message) GetText() string {
	return TextFromParts(m.Content)
}

// AddContent appends a content part to the message
func (m *Message) AddContent(part ContentPart) {
	m.Content = append(m.Content, part)
}

// Validate validates all content parts in the message
func (m Message) Validate() error {
	for _, part := range m.Content {
		if err := part.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToolCall represents one tool invocation requested by the model. Arguments
// are carried as the provider encoded them, as an opaque JSON string: the
// schema is tool defined and reinterpreting it risks lossy numeric
// conversions.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json"`
}

// ToolResult carries the outcome of executing a tool call back to the model
type ToolResult struct {
	ID         string  `json:"id"`
	ResultJSON string  `json:"result_json"`
	Error      *string `json:"error,omitempty"`
}
