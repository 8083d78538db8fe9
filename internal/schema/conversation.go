package schema

import "time"

// Conversation is an owned, ordered, append-only sequence of messages plus
// free-form key/value context notes.
//
// Conversations are mutated only through the history manager; callers that
// receive a *Conversation from storage own the copy they hold.
type Conversation struct {
	ID        string
	Owner     string
	Messages  []Message
	Context   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy with independent backing slices and maps.
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{
		ID:        c.ID,
		Owner:     c.Owner,
		Messages:  make([]Message, len(c.Messages)),
		Context:   make(map[string]string, len(c.Context)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	copy(out.Messages, c.Messages)
	for k, v := range c.Context {
		out.Context[k] = v
	}
	return out
}
