// Package usage records token consumption per chat-completion request.
package usage

import "time"

// Event is one informational usage record. Events are appended, never
// mutated.
type Event struct {
	ConversationID   string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Timestamp        time.Time
}

// TotalTokens returns prompt + completion tokens.
func (e Event) TotalTokens() int { return e.PromptTokens + e.CompletionTokens }

// NewEvent stamps an event with the current time.
func NewEvent(conversationID, model string, promptTokens, completionTokens int) Event {
	return Event{
		ConversationID:   conversationID,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Timestamp:        time.Now(),
	}
}

// Tracker consumes usage events.
type Tracker interface {
	Track(e Event)
}
