// Package orchestrator runs the chat-completion ↔ tool-execution cycle
// against a conversation.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftbot/driftbot/internal/history"
	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/tools"
	"github.com/driftbot/driftbot/internal/usage"
)

// ErrToolLoopExceeded is returned when the model keeps requesting tools
// past the configured round bound. The conversation keeps every message
// appended so far and stays usable.
var ErrToolLoopExceeded = errors.New("tool-call round limit exceeded")

// DefaultMaxRounds bounds tool-call rounds per request cycle.
const DefaultMaxRounds = 5

// Options tunes one Service.
type Options struct {
	Chat schema.ChatOptions
	// MaxRounds bounds tool-call rounds per request; 0 means DefaultMaxRounds.
	MaxRounds int
	// HistoryLimit trims the message window sent to the model; 0 means no trim.
	HistoryLimit int
	// SystemPrompt seeds new conversations.
	SystemPrompt string
}

// Service coordinates the registry, the history manager, and the AI
// client for one request cycle at a time. Callers serialize cycles per
// conversation; independent conversations may run concurrently.
type Service struct {
	client   schema.ChatClient
	registry *tools.Registry
	history  *history.Manager
	tracker  usage.Tracker
	opts     Options
}

// NewService wires a Service. tracker may be nil.
func NewService(client schema.ChatClient, registry *tools.Registry, hist *history.Manager, tracker usage.Tracker, opts Options) *Service {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if tracker == nil {
		tracker = usage.NoOpTracker{}
	}
	return &Service{
		client:   client,
		registry: registry,
		history:  hist,
		tracker:  tracker,
		opts:     opts,
	}
}

// History exposes the manager for callers that need direct access
// (transport command handlers, CLI).
func (s *Service) History() *history.Manager { return s.history }

// StartConversation creates a conversation for owner, seeded with the
// configured system prompt.
func (s *Service) StartConversation(owner string) (string, error) {
	id, err := s.history.CreateConversation(owner)
	if err != nil {
		return "", err
	}
	if s.opts.SystemPrompt != "" {
		if err := s.history.AddMessage(id, schema.NewSystemMessage(s.opts.SystemPrompt)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Respond appends userText to the conversation and runs the request
// cycle: dispatch, branch on the response, execute any requested tools,
// resubmit, bounded by MaxRounds.
//
// One tool's failure never aborts the cycle; it is reported back to the
// model as a structured tool-result payload. AI client errors propagate
// unchanged and leave the conversation valid and resumable.
func (s *Service) Respond(ctx context.Context, conversationID, userText string) (string, error) {
	if err := s.history.AddMessage(conversationID, schema.NewUserMessage(userText)); err != nil {
		return "", err
	}
	return s.run(ctx, conversationID)
}

func (s *Service) run(ctx context.Context, conversationID string) (string, error) {
	for round := 0; round < s.opts.MaxRounds; round++ {
		msgs, err := s.history.Messages(conversationID, s.opts.HistoryLimit)
		if err != nil {
			return "", err
		}

		resp, err := s.client.Chat(ctx, msgs, s.registry.Definitions(), s.opts.Chat)
		if err != nil {
			return "", err
		}

		s.tracker.Track(usage.NewEvent(conversationID, s.opts.Chat.Model,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens))

		assistant := schema.NewAssistantMessage(resp.Content, resp.ToolCalls)
		if err := s.history.AddMessage(conversationID, assistant); err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Text(), nil
		}

		for _, call := range resp.ToolCalls {
			result := s.executeCall(ctx, call)
			if err := s.history.AddMessage(conversationID,
				schema.NewToolResultMessage(call.ID, call.Name, result)); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: %d rounds", ErrToolLoopExceeded, s.opts.MaxRounds)
}

// executeCall runs one requested tool call and serializes its outcome.
// Failures of any kind become a structured error payload the model can
// read; they are never raised.
func (s *Service) executeCall(ctx context.Context, call schema.ToolCall) string {
	slog.Info("tool call", "name", call.Name, "id", call.ID)

	result, err := s.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		slog.Warn("tool call failed", "name", call.Name, "err", err)
		payload, _ := json.Marshal(map[string]any{
			"tool":   call.Name,
			"status": "error",
			"error":  err.Error(),
		})
		return string(payload)
	}
	return result
}
