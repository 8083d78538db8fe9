package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftbot/driftbot/internal/schema"
)

// Manager owns the conversation collection. It delegates persistence to
// its Storage backend and behaves identically regardless of which one is
// configured.
//
// Operations on independent conversations may run concurrently; each
// conversation is guarded by its own lock so load-modify-save sequences
// never interleave for the same id.
type Manager struct {
	storage Storage
	locks   sync.Map // conversation id → *sync.Mutex
}

// NewManager creates a Manager over the given backend.
func NewManager(storage Storage) *Manager {
	return &Manager{storage: storage}
}

func (m *Manager) lock(id string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CreateConversation allocates a new conversation for owner and returns
// its id.
func (m *Manager) CreateConversation(owner string) (string, error) {
	now := time.Now()
	conv := &schema.Conversation{
		ID:        uuid.NewString(),
		Owner:     owner,
		Context:   map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.storage.Save(conv); err != nil {
		return "", err
	}
	slog.Info("created conversation", "id", conv.ID, "owner", owner)
	return conv.ID, nil
}

// Conversation returns a copy of the stored conversation.
func (m *Manager) Conversation(id string) (*schema.Conversation, error) {
	conv, err := m.storage.Load(id)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return nil, err
	}
	return conv, nil
}

// AddMessage appends msg to the conversation.
//
// A tool-role message must carry a ToolCallID answering an outstanding
// tool call from a prior assistant message; anything else is rejected
// with ErrInvalidMessage and leaves the sequence untouched.
func (m *Manager) AddMessage(id string, msg schema.Message) error {
	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	conv, err := m.Conversation(id)
	if err != nil {
		return err
	}

	if msg.Role == schema.RoleTool {
		if msg.ToolCallID == "" {
			return fmt.Errorf("%w: tool message without tool_call_id", ErrInvalidMessage)
		}
		if !hasOutstandingCall(conv.Messages, msg.ToolCallID) {
			return fmt.Errorf("%w: tool_call_id %q does not answer an outstanding tool call", ErrInvalidMessage, msg.ToolCallID)
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	return m.storage.Save(conv)
}

// hasOutstandingCall reports whether callID names an assistant tool call
// that has not yet been answered by a tool message. An assistant message
// that reuses an already-answered id in a later round makes it
// outstanding again, so the set is computed as a running scan over the
// transcript.
func hasOutstandingCall(msgs []schema.Message, callID string) bool {
	outstanding := false
	for _, m := range msgs {
		switch m.Role {
		case schema.RoleAssistant:
			for _, tc := range m.ToolCalls {
				if tc.ID == callID {
					outstanding = true
				}
			}
		case schema.RoleTool:
			if m.ToolCallID == callID {
				outstanding = false
			}
		}
	}
	return outstanding
}

// Messages returns the ordered message sequence, optionally trimmed to
// roughly the most recent limit messages (limit <= 0 means everything).
//
// Trimming preserves the leading system message and never splits a
// tool-call/tool-result group: whole groups are dropped, never parts.
func (m *Manager) Messages(id string, limit int) ([]schema.Message, error) {
	conv, err := m.Conversation(id)
	if err != nil {
		return nil, err
	}
	return Trim(conv.Messages, limit), nil
}

// Trim applies the window rules to msgs. Exported for the orchestrator
// and tests; pure.
func Trim(msgs []schema.Message, limit int) []schema.Message {
	if limit <= 0 || len(msgs) <= limit {
		out := make([]schema.Message, len(msgs))
		copy(out, msgs)
		return out
	}

	start := len(msgs) - limit
	// A window must not open on a tool result whose triggering call was
	// trimmed away; advance past the remainder of that group.
	for start < len(msgs) && msgs[start].Role == schema.RoleTool {
		start++
	}

	var out []schema.Message
	if msgs[0].Role == schema.RoleSystem && start > 0 {
		out = append(out, msgs[0])
	}
	out = append(out, msgs[start:]...)
	return out
}

// SetContext sets one context key; last write wins.
func (m *Manager) SetContext(id, key, value string) error {
	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	conv, err := m.Conversation(id)
	if err != nil {
		return err
	}
	conv.Context[key] = value
	conv.UpdatedAt = time.Now()
	return m.storage.Save(conv)
}

// Context returns a copy of the conversation's context mapping.
func (m *Manager) Context(id string) (map[string]string, error) {
	conv, err := m.Conversation(id)
	if err != nil {
		return nil, err
	}
	return conv.Context, nil
}

// DeleteConversation removes the conversation and all its messages.
// Deleting an absent id is not an error.
func (m *Manager) DeleteConversation(id string) error {
	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := m.storage.Delete(id); err != nil {
		return err
	}
	m.locks.Delete(id)
	return nil
}

// ListConversations returns summaries newest-first, optionally filtered
// by owner ("" = all).
func (m *Manager) ListConversations(owner string) ([]Summary, error) {
	return m.storage.List(owner)
}

// Close releases the underlying storage backend.
func (m *Manager) Close() error {
	return m.storage.Close()
}
