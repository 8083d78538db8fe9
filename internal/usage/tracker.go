package usage

import "sync"

// NoOpTracker discards every event.
type NoOpTracker struct{}

func (NoOpTracker) Track(Event) {}

// ModelStats aggregates usage for one model.
type ModelStats struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EventCount       int
}

// Stats is an aggregate over a set of events.
type Stats struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EventCount       int
	ByModel          map[string]ModelStats
}

// MemoryTracker keeps events in process memory. Safe for concurrent use.
type MemoryTracker struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func (t *MemoryTracker) Track(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

// Events returns a copy of all recorded events in order.
func (t *MemoryTracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Totals aggregates events, optionally filtered by conversation id
// ("" = all), with a per-model breakdown.
func (t *MemoryTracker) Totals(conversationID string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{ByModel: make(map[string]ModelStats)}
	for _, e := range t.events {
		if conversationID != "" && e.ConversationID != conversationID {
			continue
		}
		stats.PromptTokens += e.PromptTokens
		stats.CompletionTokens += e.CompletionTokens
		stats.TotalTokens += e.TotalTokens()
		stats.EventCount++

		ms := stats.ByModel[e.Model]
		ms.PromptTokens += e.PromptTokens
		ms.CompletionTokens += e.CompletionTokens
		ms.TotalTokens += e.TotalTokens()
		ms.EventCount++
		stats.ByModel[e.Model] = ms
	}
	return stats
}
