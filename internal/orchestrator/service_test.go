package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbot/driftbot/internal/history"
	"github.com/driftbot/driftbot/internal/providers"
	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/tools"
	"github.com/driftbot/driftbot/internal/usage"
)

// scriptedClient returns canned responses in order; after the script is
// exhausted it keeps returning the last one.
type scriptedClient struct {
	script []schema.LLMResponse
	err    error
	calls  int
	seen   [][]schema.Message
}

func (c *scriptedClient) Chat(_ context.Context, msgs []schema.Message, _ []schema.ToolDefinition, _ schema.ChatOptions) (schema.LLMResponse, error) {
	c.seen = append(c.seen, msgs)
	if c.err != nil {
		return schema.LLMResponse{}, c.err
	}
	i := c.calls
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	c.calls++
	return c.script[i], nil
}

func textResponse(s string) schema.LLMResponse {
	return schema.LLMResponse{
		Content:      &s,
		FinishReason: "stop",
		Usage:        schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}
}

func toolResponse(calls ...schema.ToolCall) schema.LLMResponse {
	return schema.LLMResponse{
		ToolCalls:    calls,
		FinishReason: "tool_calls",
		Usage:        schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}
}

func newTestService(t *testing.T, client schema.ChatClient, opts Options) *Service {
	t.Helper()

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.Func{
		ToolName:        "echo",
		ToolDescription: "echo",
		ParamSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"text": {"type": "string"}},
			"required": ["text"]
		}`),
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}))
	require.NoError(t, reg.Register(tools.Func{
		ToolName:        "broken",
		ToolDescription: "always fails",
		ParamSchema:     json.RawMessage(`{"type": "object", "properties": {}}`),
		Fn: func(_ context.Context, _ map[string]any) (string, error) {
			return "", errors.New("kaput")
		},
	}))

	mgr := history.NewManager(history.NewMemoryStorage())
	return NewService(client, reg, mgr, nil, opts)
}

func TestRespondPlainText(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{textResponse("hello there")}}
	svc := newTestService(t, client, Options{SystemPrompt: "be helpful"})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	out, err := svc.Respond(context.Background(), id, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, 1, client.calls)

	// system, user, assistant.
	msgs, err := svc.History().Messages(id, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.RoleSystem, msgs[0].Role)
	assert.Equal(t, "be helpful", msgs[0].Text())
	assert.Equal(t, schema.RoleAssistant, msgs[2].Role)
}

func TestRespondWithToolCall(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call-1", Name: "echo", Arguments: map[string]any{"text": "Hello, Tools!"}}),
		textResponse("the tool said: Hello, Tools!"),
	}}
	svc := newTestService(t, client, Options{})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	out, err := svc.Respond(context.Background(), id, "use echo")
	require.NoError(t, err)
	assert.Equal(t, "the tool said: Hello, Tools!", out)
	assert.Equal(t, 2, client.calls)

	// user, assistant(tool call), tool result, assistant.
	msgs, err := svc.History().Messages(id, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, schema.RoleTool, msgs[2].Role)
	assert.Equal(t, "Hello, Tools!", msgs[2].Text())
	assert.Equal(t, "call-1", msgs[2].ToolCallID)

	// The resubmission carried the tool result.
	second := client.seen[1]
	assert.Equal(t, schema.RoleTool, second[len(second)-1].Role)
}

func TestToolFailureReportedToModel(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call-1", Name: "broken", Arguments: map[string]any{}}),
		textResponse("that tool is broken"),
	}}
	svc := newTestService(t, client, Options{})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	out, err := svc.Respond(context.Background(), id, "break it")
	require.NoError(t, err, "tool failure must not abort the cycle")
	assert.Equal(t, "that tool is broken", out)

	msgs, err := svc.History().Messages(id, 0)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[2].Text()), &payload))
	assert.Equal(t, "broken", payload["tool"])
	assert.Equal(t, "error", payload["status"])
	assert.Contains(t, payload["error"], "kaput")
}

func TestUnknownToolReportedToModel(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call-1", Name: "no_such_tool", Arguments: map[string]any{}}),
		textResponse("sorry"),
	}}
	svc := newTestService(t, client, Options{})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), id, "go")
	require.NoError(t, err)

	msgs, err := svc.History().Messages(id, 0)
	require.NoError(t, err)
	assert.Contains(t, msgs[2].Text(), "error")
}

func TestToolLoopExceeded(t *testing.T) {
	// The model asks for a tool forever.
	client := &scriptedClient{script: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call-1", Name: "echo", Arguments: map[string]any{"text": "x"}}),
	}}
	svc := newTestService(t, client, Options{MaxRounds: 3})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), id, "loop")
	require.ErrorIs(t, err, ErrToolLoopExceeded)
	assert.Equal(t, 3, client.calls)

	// Everything appended so far is kept; the conversation stays usable.
	msgs, err := svc.History().Messages(id, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 7) // user + 3 × (assistant, tool)

	client.script = []schema.LLMResponse{textResponse("recovered")}
	client.calls = 0
	out, err := svc.Respond(context.Background(), id, "try again")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
}

func TestAIErrorPropagates(t *testing.T) {
	aiErr := &providers.AIError{Provider: "openai", Err: errors.New("rate limited")}
	client := &scriptedClient{err: aiErr}
	svc := newTestService(t, client, Options{})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), id, "hi")
	var got *providers.AIError
	require.ErrorAs(t, err, &got)

	// The user message stays; the conversation is resumable.
	msgs, histErr := svc.History().Messages(id, 0)
	require.NoError(t, histErr)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.RoleUser, msgs[0].Role)
}

func TestUsageTracked(t *testing.T) {
	tracker := usage.NewMemoryTracker()
	client := &scriptedClient{script: []schema.LLMResponse{
		toolResponse(schema.ToolCall{ID: "call-1", Name: "echo", Arguments: map[string]any{"text": "x"}}),
		textResponse("done"),
	}}

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tools.Func{
		ToolName:        "echo",
		ToolDescription: "echo",
		ParamSchema:     json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}))
	mgr := history.NewManager(history.NewMemoryStorage())
	svc := NewService(client, reg, mgr, tracker, Options{Chat: schema.ChatOptions{Model: "gpt-4o-mini"}})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), id, "go")
	require.NoError(t, err)

	stats := tracker.Totals(id)
	assert.Equal(t, 2, stats.EventCount)
	assert.Equal(t, 20, stats.PromptTokens)
	assert.Equal(t, 10, stats.CompletionTokens)
	assert.Contains(t, stats.ByModel, "gpt-4o-mini")
}

func TestRespondUnknownConversation(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{textResponse("x")}}
	svc := newTestService(t, client, Options{})

	_, err := svc.Respond(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, history.ErrConversationNotFound)
}

func TestHistoryLimitApplied(t *testing.T) {
	client := &scriptedClient{script: []schema.LLMResponse{textResponse("short")}}
	svc := newTestService(t, client, Options{SystemPrompt: "sys", HistoryLimit: 3})

	id, err := svc.StartConversation("alice")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err = svc.Respond(context.Background(), id, "ping")
		require.NoError(t, err)
	}

	last := client.seen[len(client.seen)-1]
	require.Len(t, last, 4) // system + trimmed window of 3
	assert.Equal(t, schema.RoleSystem, last[0].Role)
}
