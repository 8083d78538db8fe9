package schema

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents one function call requested by an assistant message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToWireMap serialises a ToolCall into the OpenAI wire-format map.
// Used by the file storage backend and the anthropic formatter when
// building raw JSON bodies.
func (tc ToolCall) ToWireMap() map[string]any {
	argsJSON, _ := json.Marshal(tc.Arguments)
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": string(argsJSON),
		},
	}
}

// Message is one entry in a conversation.
//
// Content is nil only on assistant messages that carry tool calls and no
// text. ToolCalls is populated for assistant messages that invoke tools.
// ToolCallID and ToolName are set only on tool-result messages and must
// reference a prior assistant tool call in the same conversation.
type Message struct {
	Role       string
	Content    *string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
	Timestamp  time.Time
}

// Text returns the message content, or "" when Content is nil.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: &content, Timestamp: time.Now()}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: &content, Timestamp: time.Now()}
}

func NewAssistantMessage(content *string, toolCalls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		Timestamp: time.Now(),
	}
}

func NewToolResultMessage(toolCallID, toolName, result string) Message {
	return Message{
		Role:       RoleTool,
		Content:    &result,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Timestamp:  time.Now(),
	}
}
