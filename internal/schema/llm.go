package schema

import "context"

// ChatOptions carries per-request model parameters.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// TokenUsage reports prompt/completion token counts for one request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// LLMResponse is the unified result of one chat-completion request:
// either assistant text, or one or more tool-call requests, never both
// empty.
type LLMResponse struct {
	Content      *string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        TokenUsage
}

// Text returns the assistant text, or "" when the response carries only
// tool calls.
func (r LLMResponse) Text() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// ChatClient is the boundary to a hosted chat-completion service.
// Implementations convert messages and tool definitions into the wire
// shape their provider expects and surface transport or API failures as
// *providers.AIError.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (LLMResponse, error)
}
