package format

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/driftbot/driftbot/internal/schema"
)

// OpenAIFormatter produces []openai.ChatCompletionMessage.
type OpenAIFormatter struct{}

func (OpenAIFormatter) FormatMessages(msgs []schema.Message) (any, error) {
	return ToOpenAI(msgs), nil
}

// ToOpenAI converts messages into the chat-completions request shape.
// Every tool call and tool result round-trips losslessly.
func ToOpenAI(msgs []schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToOpenAI(m))
	}
	return out
}

func messageToOpenAI(m schema.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    m.Role,
		Content: m.Text(),
	}
	for _, tc := range m.ToolCalls {
		argsJSON, _ := json.Marshal(tc.Arguments)
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: string(argsJSON),
			},
		})
	}
	if m.Role == schema.RoleTool {
		msg.ToolCallID = m.ToolCallID
		msg.Name = m.ToolName
	}
	return msg
}

// FromOpenAI converts a wire message back into the internal shape.
// Inverse of ToOpenAI up to argument map ordering.
func FromOpenAI(m openai.ChatCompletionMessage) schema.Message {
	var content *string
	if m.Content != "" || len(m.ToolCalls) == 0 {
		c := m.Content
		content = &c
	}
	msg := schema.Message{
		Role:       m.Role,
		Content:    content,
		ToolCallID: m.ToolCallID,
	}
	if m.Role == schema.RoleTool {
		msg.ToolName = m.Name
	}
	for _, tc := range m.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return msg
}

// ToolsToOpenAI converts tool definitions into the function-calling
// request shape.
func ToolsToOpenAI(defs []schema.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}
