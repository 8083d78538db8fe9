package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTotalTokens(t *testing.T) {
	e := NewEvent("conv-1", "gpt-4o-mini", 100, 40)
	assert.Equal(t, 140, e.TotalTokens())
	assert.False(t, e.Timestamp.IsZero())
}

func TestMemoryTrackerTotals(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.Track(NewEvent("conv-1", "gpt-4o-mini", 100, 40))
	tracker.Track(NewEvent("conv-1", "gpt-4o", 50, 20))
	tracker.Track(NewEvent("conv-2", "gpt-4o-mini", 30, 10))

	all := tracker.Totals("")
	assert.Equal(t, 3, all.EventCount)
	assert.Equal(t, 180, all.PromptTokens)
	assert.Equal(t, 70, all.CompletionTokens)
	assert.Equal(t, 250, all.TotalTokens)

	one := tracker.Totals("conv-1")
	assert.Equal(t, 2, one.EventCount)
	assert.Equal(t, 150, one.PromptTokens)

	require.Contains(t, one.ByModel, "gpt-4o-mini")
	require.Contains(t, one.ByModel, "gpt-4o")
	assert.Equal(t, 140, one.ByModel["gpt-4o-mini"].TotalTokens)
	assert.Equal(t, 1, one.ByModel["gpt-4o"].EventCount)

	none := tracker.Totals("conv-404")
	assert.Equal(t, 0, none.EventCount)
}

func TestMemoryTrackerEventsCopy(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.Track(NewEvent("conv-1", "gpt-4o-mini", 1, 1))

	events := tracker.Events()
	require.Len(t, events, 1)
	events[0].PromptTokens = 999

	assert.Equal(t, 1, tracker.Events()[0].PromptTokens)
}

func TestNoOpTracker(t *testing.T) {
	var tracker Tracker = NoOpTracker{}
	tracker.Track(NewEvent("conv-1", "gpt-4o-mini", 1, 1))
}
