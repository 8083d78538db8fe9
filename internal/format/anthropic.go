package format

import (
	"encoding/json"

	"github.com/driftbot/driftbot/internal/schema"
)

// AnthropicRequest is the Messages API body fragment: system prompt plus
// converted messages.
type AnthropicRequest struct {
	System   string
	Messages []map[string]any
}

// AnthropicFormatter produces an AnthropicRequest.
type AnthropicFormatter struct{}

func (AnthropicFormatter) FormatMessages(msgs []schema.Message) (any, error) {
	system, converted := ToAnthropic(msgs)
	return AnthropicRequest{System: system, Messages: converted}, nil
}

// ToAnthropic converts messages to the Anthropic Messages API format.
// System messages are concatenated into the separate system prompt;
// tool results become tool_result blocks inside user messages, merged
// when consecutive; assistant tool calls become tool_use blocks.
func ToAnthropic(msgs []schema.Message) (string, []map[string]any) {
	var system string
	var out []map[string]any

	for _, msg := range msgs {
		switch msg.Role {
		case schema.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Text()

		case schema.RoleUser:
			out = append(out, map[string]any{
				"role":    "user",
				"content": msg.Text(),
			})

		case schema.RoleTool:
			block := map[string]any{
				"type":        "tool_result",
				"tool_use_id": msg.ToolCallID,
				"content":     msg.Text(),
			}
			// Merge consecutive tool results into one user message.
			if len(out) > 0 && out[len(out)-1]["role"] == "user" {
				prev := out[len(out)-1]
				if blocks, ok := prev["content"].([]any); ok {
					prev["content"] = append(blocks, block)
					continue
				}
			}
			out = append(out, map[string]any{"role": "user", "content": []any{block}})

		case schema.RoleAssistant:
			var blocks []any
			if text := msg.Text(); text != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": text})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			if len(blocks) == 0 {
				blocks = []any{map[string]any{"type": "text", "text": ""}}
			}
			out = append(out, map[string]any{"role": "assistant", "content": blocks})
		}
	}
	return system, out
}

// ToolsToAnthropic converts tool definitions to the Anthropic tool
// format. Key difference from OpenAI: "parameters" → "input_schema".
func ToolsToAnthropic(defs []schema.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		var inputSchema any
		if err := json.Unmarshal(def.Parameters, &inputSchema); err != nil {
			inputSchema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, map[string]any{
			"name":         def.Name,
			"description":  def.Description,
			"input_schema": inputSchema,
		})
	}
	return out
}
