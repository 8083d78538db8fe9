package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/driftbot/driftbot/internal/format"
	"github.com/driftbot/driftbot/internal/schema"
)

// OpenAIClient implements schema.ChatClient on top of the go-openai SDK.
// Custom APIBase supports any OpenAI-compatible endpoint.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewOpenAIClient constructs a client. model is the default used when
// ChatOptions.Model is empty.
func NewOpenAIClient(apiKey, apiBase, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = apiBase
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(cfg), model: model}
}

// Chat implements schema.ChatClient.
func (c *OpenAIClient) Chat(
	ctx context.Context,
	messages []schema.Message,
	tools []schema.ToolDefinition,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	start := time.Now()

	model := opts.Model
	if model == "" {
		model = c.model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    format.ToOpenAI(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if len(tools) > 0 {
		req.Tools = format.ToolsToOpenAI(tools)
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return schema.LLMResponse{}, &AIError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return schema.LLMResponse{}, &AIError{Provider: "openai", Err: fmt.Errorf("empty choices in response")}
	}

	out := responseFromChoice(resp.Choices[0], resp.Usage)

	slog.Debug("chat completion received",
		"model", model,
		"tool_calls", len(out.ToolCalls),
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

// responseFromChoice maps the SDK response into the unified shape.
func responseFromChoice(choice openai.ChatCompletionChoice, usage openai.Usage) schema.LLMResponse {
	msg := choice.Message

	var content *string
	if msg.Content != "" {
		c := msg.Content
		content = &c
	}

	var toolCalls []schema.ToolCall
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
			args = map[string]any{}
		}
		toolCalls = append(toolCalls, schema.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	finish := string(choice.FinishReason)
	if finish == "" {
		finish = "stop"
	}

	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: schema.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
		},
	}
}
