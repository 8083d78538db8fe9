package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbot/driftbot/internal/history"
)

// fakeOrchestrator counts in-flight cycles per conversation and can gate
// a conversation's Respond until a channel is closed.
type fakeOrchestrator struct {
	history *history.Manager
	gates   map[string]chan struct{} // conversation id → release gate

	mu       sync.Mutex
	inFlight map[string]int
	overlap  bool
	calls    []string
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		history:  history.NewManager(history.NewMemoryStorage()),
		gates:    map[string]chan struct{}{},
		inFlight: map[string]int{},
	}
}

func (f *fakeOrchestrator) StartConversation(owner string) (string, error) {
	return "conv-" + owner, nil
}

func (f *fakeOrchestrator) History() *history.Manager { return f.history }

func (f *fakeOrchestrator) Respond(_ context.Context, convID, text string) (string, error) {
	f.mu.Lock()
	f.inFlight[convID]++
	if f.inFlight[convID] > 1 {
		f.overlap = true
	}
	f.mu.Unlock()

	if gate, ok := f.gates[convID]; ok {
		<-gate
	}

	f.mu.Lock()
	f.inFlight[convID]--
	f.calls = append(f.calls, convID+":"+text)
	f.mu.Unlock()
	return "ok:" + text, nil
}

func (f *fakeOrchestrator) overlapped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlap
}

func (f *fakeOrchestrator) completed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func textUpdate(updateID int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: updateID,
			From:      &tgbotapi.User{ID: chatID},
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      text,
		},
	}
}

type sentMessage struct {
	chat int64
	text string
}

func TestDispatchSerializesPerChat(t *testing.T) {
	fake := newFakeOrchestrator()
	// Chat 1's cycles stall until chat 2 has answered.
	chat2Done := make(chan struct{})
	fake.gates["conv-1"] = chat2Done

	b := NewBot("token", nil, fake)
	sends := make(chan sentMessage, 8)
	b.send = func(chatID int64, text string) { sends <- sentMessage{chatID, text} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.dispatch(ctx, textUpdate(1, 1, "a"))
	b.dispatch(ctx, textUpdate(2, 1, "b"))
	b.dispatch(ctx, textUpdate(3, 2, "x"))

	var got []sentMessage
	for len(got) < 3 {
		select {
		case s := <-sends:
			got = append(got, s)
			if s.chat == 2 {
				close(chat2Done)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for replies, got %v", got)
		}
	}

	// Chat 2 answered while chat 1's first cycle was still running, so
	// independent chats do proceed concurrently.
	require.Equal(t, int64(2), got[0].chat)
	assert.Equal(t, "ok:x", got[0].text)

	// Chat 1's own cycles ran strictly in order, one at a time.
	assert.Equal(t, "ok:a", got[1].text)
	assert.Equal(t, "ok:b", got[2].text)
	assert.False(t, fake.overlapped(), "cycles for one chat must never overlap")
	assert.Equal(t, []string{"conv-2:x", "conv-1:a", "conv-1:b"}, fake.completed())
}

func TestDispatchFirstContactCreatesConversation(t *testing.T) {
	fake := newFakeOrchestrator()
	b := NewBot("token", nil, fake)

	sends := make(chan sentMessage, 2)
	b.send = func(chatID int64, text string) { sends <- sentMessage{chatID, text} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.dispatch(ctx, textUpdate(1, 7, "hello"))

	select {
	case s := <-sends:
		assert.Equal(t, int64(7), s.chat)
		assert.Equal(t, "ok:hello", s.text)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, fmt.Sprintf("conv-%d", 7), b.convs[7])
}

func TestSplitMessageShort(t *testing.T) {
	chunks := splitMessage("hello", 4096)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0])
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	content := strings.Repeat("line one\n", 20)
	chunks := splitMessage(content, 50)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 50)
		assert.False(t, strings.HasPrefix(c, "\n"))
		assert.False(t, strings.HasSuffix(c, "\n"))
	}
	joined := strings.Join(chunks, "\n") + "\n"
	assert.Equal(t, content, joined)
}

func TestSplitMessageFallsBackToSpaces(t *testing.T) {
	content := strings.Repeat("word ", 30)
	chunks := splitMessage(strings.TrimSpace(content), 40)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 40)
		assert.NotContains(t, c, "  ")
	}
}

func TestSplitMessageHardCut(t *testing.T) {
	content := strings.Repeat("x", 100)
	chunks := splitMessage(content, 40)

	require.Len(t, chunks, 3)
	assert.Equal(t, 40, len(chunks[0]))
	assert.Equal(t, 40, len(chunks[1]))
	assert.Equal(t, 20, len(chunks[2]))
}

func TestIsAllowed(t *testing.T) {
	b := NewBot("token", nil, nil)
	assert.True(t, b.isAllowed("123", "alice"), "empty allowlist allows everyone")

	b = NewBot("token", []string{"123", "bob"}, nil)
	assert.True(t, b.isAllowed("123", ""))
	assert.True(t, b.isAllowed("999", "bob"))
	assert.False(t, b.isAllowed("999", "mallory"))
	assert.False(t, b.isAllowed("999", ""))
}
