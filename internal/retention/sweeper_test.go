package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbot/driftbot/internal/history"
	"github.com/driftbot/driftbot/internal/schema"
)

func seedConversation(t *testing.T, store history.Storage, id string, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Save(&schema.Conversation{
		ID:        id,
		Owner:     "alice",
		Context:   map[string]string{},
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}))
}

func TestSweepDeletesStaleConversations(t *testing.T) {
	store := history.NewMemoryStorage()
	mgr := history.NewManager(store)
	now := time.Now()

	seedConversation(t, store, "stale", now.Add(-48*time.Hour))
	seedConversation(t, store, "fresh", now.Add(-time.Hour))

	sweeper := NewSweeper(mgr, 24*time.Hour, "")
	sweeper.now = func() time.Time { return now }

	assert.Equal(t, 1, sweeper.Sweep())

	_, err := mgr.Conversation("stale")
	assert.ErrorIs(t, err, history.ErrConversationNotFound)
	_, err = mgr.Conversation("fresh")
	assert.NoError(t, err)
}

func TestSweepNothingStale(t *testing.T) {
	store := history.NewMemoryStorage()
	mgr := history.NewManager(store)

	seedConversation(t, store, "fresh", time.Now())

	sweeper := NewSweeper(mgr, 24*time.Hour, "")
	assert.Equal(t, 0, sweeper.Sweep())
}

func TestRunDisabledWithoutMaxAge(t *testing.T) {
	mgr := history.NewManager(history.NewMemoryStorage())
	sweeper := NewSweeper(mgr, 0, "")

	// Must return immediately, not block on the cron loop.
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return with retention disabled")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	mgr := history.NewManager(history.NewMemoryStorage())
	sweeper := NewSweeper(mgr, time.Hour, "@hourly")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
